// create-admin 创建初始管理员账号
//
// 随机生成密码并只输出一次；同时为管理员创建 VIP 会员档案，便于自助签到自测。
// 用户名已存在时直接退出，不覆盖。
//
//	go run ./cmd/create-admin -username admin -name "Gym Admin"
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gympulse/backend/config"
	"gympulse/backend/internal/model"
	"gympulse/backend/internal/repository"
	"gympulse/backend/pkg/database"
	applogger "gympulse/backend/pkg/logger"
)

func main() {
	username := flag.String("username", "admin", "管理员用户名")
	fullName := flag.String("name", "Gym Admin", "管理员姓名")
	email := flag.String("email", "", "管理员邮箱（可选）")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("GYM_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	ctx := context.Background()
	repo := repository.NewRepository(db)

	// 已存在则不覆盖
	if _, err := repo.User.GetByUsername(ctx, *username); err == nil {
		fmt.Printf("用户名 %q 已存在，未做任何修改\n", *username)
		os.Exit(1)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Fatal("查询用户失败", zap.Error(err))
	}

	password, err := randomPassword()
	if err != nil {
		logger.Fatal("生成随机密码失败", zap.Error(err))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Fatal("密码哈希失败", zap.Error(err))
	}

	now := time.Now().In(cfg.Gym.Location())
	user := &model.User{
		Username:     *username,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	member := &model.Member{
		FullName:        *fullName,
		Email:           *email,
		Gender:          "other",
		PlanType:        model.PlanVIP,
		MonthlyFee:      decimal.Zero,
		JoinDate:        model.DateOf(now),
		NextDueDate:     model.DateOf(now.AddDate(0, 1, 0)),
		GracePeriodDays: model.DefaultGracePeriodDays,
		Status:          model.MemberStatusActive,
	}
	if err := repo.Member.CreateWithUser(ctx, user, member); err != nil {
		logger.Fatal("创建管理员失败", zap.Error(err))
	}

	fmt.Println("管理员账号已创建")
	fmt.Println("  用户名:", *username)
	fmt.Println("  密码:  ", password)
	fmt.Println("密码只显示这一次，请登录后妥善保管")
}

// randomPassword 16 字节随机数的十六进制表示
func randomPassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
