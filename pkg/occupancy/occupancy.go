// Package occupancy 根据实时在馆人数与容量推导占用率与拥挤等级。
//
// 结果从不持久化：容量可能随时被管理员修改，每次查询都重新计算。
package occupancy

import (
	"errors"
	"math"
)

// CrowdStatus 拥挤等级
type CrowdStatus string

const (
	CrowdLow      CrowdStatus = "Low"
	CrowdModerate CrowdStatus = "Moderate"
	CrowdHigh     CrowdStatus = "High"
	CrowdFull     CrowdStatus = "Full"
)

// 阈值均为整数百分比
const (
	lowMax      = 40
	moderateMax = 80
	fullMin     = 100
)

// ErrInvalidCapacity 容量必须为正数
var ErrInvalidCapacity = errors.New("capacity must be positive")

// Snapshot 某一时刻的占用情况
type Snapshot struct {
	Count         int         `json:"count"`
	Capacity      int         `json:"capacity"`
	OccupancyRate int         `json:"occupancy_rate"`
	CrowdStatus   CrowdStatus `json:"crowd_status"`
}

// Rate 计算四舍五入后的整数占用率
func Rate(liveCount, capacity int) (int, error) {
	if capacity <= 0 {
		return 0, ErrInvalidCapacity
	}
	if liveCount < 0 {
		liveCount = 0
	}
	return int(math.Round(float64(liveCount) * 100 / float64(capacity))), nil
}

// Classify 按阈值升序判定，后命中者覆盖前者
func Classify(rate int) CrowdStatus {
	status := CrowdLow
	if rate > lowMax {
		status = CrowdModerate
	}
	if rate > moderateMax {
		status = CrowdHigh
	}
	if rate >= fullMin {
		status = CrowdFull
	}
	return status
}

// Compute 组合 Rate 与 Classify
func Compute(liveCount, capacity int) (Snapshot, error) {
	rate, err := Rate(liveCount, capacity)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Count:         liveCount,
		Capacity:      capacity,
		OccupancyRate: rate,
		CrowdStatus:   Classify(rate),
	}, nil
}

// AtCapacity 自助签到闸口：在馆人数达到或超过容量即拒绝
func AtCapacity(liveCount, capacity int) bool {
	return liveCount >= capacity
}
