package dto

// ── 配置模块 DTO ──

// UpdateSettingRequest 更新单个配置项
type UpdateSettingRequest struct {
	Value *string `json:"value" binding:"required"`
}

// SettingResponse 配置项响应
type SettingResponse struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updated_at"`
}
