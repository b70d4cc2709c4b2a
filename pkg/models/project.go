package models

import "time"

// Build groups the sessions started by one test run
type Build struct {
	ID          string    `json:"hashed_id"`
	Name        string    `json:"name"`
	ProjectName string    `json:"project_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateSessionRequest is the payload for opening a session on the grid simulator
type CreateSessionRequest struct {
	Name        string `json:"name"`
	BuildName   string `json:"build,omitempty"`
	ProjectName string `json:"project,omitempty"`
	Browser     string `json:"browser,omitempty"`
	OS          string `json:"os,omitempty"`
	OSVersion   string `json:"os_version,omitempty"`
	Device      string `json:"device,omitempty"`
}
