package models

import "gorm.io/gorm"

// Session is a persisted conversation session, uniquely identified by the
// (app_name, user_id, session_id) triple.
type Session struct {
	BaseModel
	AppName   string `gorm:"not null;index:idx_session_key,unique,priority:1" json:"app_name"`
	UserID    string `gorm:"not null;index:idx_session_key,unique,priority:2" json:"user_id"`
	SessionID string `gorm:"not null;index:idx_session_key,unique,priority:3" json:"session_id"`

	// VideoID and VideoURL anchor the session to the video being edited.
	VideoID  string `gorm:"index" json:"video_id,omitempty"`
	VideoURL string `json:"video_url,omitempty"`

	// FeatureID selects the feature configuration (brand color etc).
	FeatureID string `json:"feature_id,omitempty"`

	State    []SessionState   `gorm:"foreignKey:SessionPK;constraint:OnDelete:CASCADE" json:"-"`
	Versions []SessionVersion `gorm:"foreignKey:SessionPK;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name for Session.
func (Session) TableName() string {
	return "sessions"
}

// SessionState is a JSON-valued key/value entry scoped to a session. The
// edit queue is stored under its own key alongside arbitrary agent state.
type SessionState struct {
	BaseModel
	SessionPK ULID   `gorm:"not null;index:idx_state_key,unique,priority:1;type:varchar(26)" json:"session_pk"`
	Key       string `gorm:"not null;index:idx_state_key,unique,priority:2" json:"key"`
	Value     string `gorm:"type:text" json:"value"`
}

// TableName overrides the table name for SessionState.
func (SessionState) TableName() string {
	return "session_state"
}

// SessionVersion is a numbered snapshot of a session's rendered output,
// recorded each time the edit queue is applied.
type SessionVersion struct {
	BaseModel
	SessionPK     ULID   `gorm:"not null;index:idx_version_key,unique,priority:1;type:varchar(26)" json:"session_pk"`
	VersionNumber int    `gorm:"not null;index:idx_version_key,unique,priority:2" json:"version_number"`
	VideoURL      string `json:"video_url"`
	StateSnapshot string `gorm:"type:text" json:"state_snapshot,omitempty"`
}

// TableName overrides the table name for SessionVersion.
func (SessionVersion) TableName() string {
	return "session_versions"
}

// AllModels returns all models for migration.
func AllModels() []any {
	return []any{
		&Session{},
		&SessionState{},
		&SessionVersion{},
	}
}

// Migrate runs auto-migration for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
