package model

import "time"

// RecoveryEntry mirrors an in-progress attempt for instant redraw after a
// reload. It is advisory: the status endpoint always overrides it.
type RecoveryEntry struct {
	UserID          uint                 `json:"userId"`
	TestID          uint                 `json:"testId"`
	AttemptID       uint                 `json:"attemptId"`
	AttemptNumber   int                  `json:"attemptNumber"`
	StartedAt       time.Time            `json:"startedAt"`
	DurationSeconds *int                 `json:"durationSeconds"`
	Questions       []Question           `json:"questions"`
	Answers         map[uint]AnswerValue `json:"answers"`
	CurrentQuestion int                  `json:"currentQuestion"`
	SavedAt         time.Time            `json:"savedAt"`
}

// RecoveryCacheRecord stores a serialized RecoveryEntry in MySQL.
type RecoveryCacheRecord struct {
	BaseModel
	CacheKey  string    `gorm:"size:191;uniqueIndex;not null" json:"cacheKey"`
	Payload   string    `gorm:"type:json" json:"payload"`
	ExpiresAt time.Time `gorm:"index" json:"expiresAt"`
}

func (RecoveryCacheRecord) TableName() string {
	return "attempt_recovery_cache"
}
