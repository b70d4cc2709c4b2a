package models

import "strings"

// Credentials authenticate every call to the grid REST API
type Credentials struct {
	Username  string `json:"username" mapstructure:"username"`
	AccessKey string `json:"-" mapstructure:"access_key"`
}

// Configured reports whether both halves of the pair are set
func (c Credentials) Configured() bool {
	return strings.TrimSpace(c.Username) != "" && strings.TrimSpace(c.AccessKey) != ""
}
