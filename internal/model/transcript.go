package model

import "time"

// Transcript 是对话日志在 MySQL 中的存储形式：一个固定键对应整份 JSON 消息数组。
type Transcript struct {
	Key       string    `gorm:"column:transcript_key;primaryKey;size:128" json:"key"`
	Payload   string    `gorm:"type:longtext;not null" json:"payload"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Transcript) TableName() string {
	return "chat_transcripts"
}
