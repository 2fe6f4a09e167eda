package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type History struct {
	Id          uuid.UUID
	UserId      uuid.UUID
	ToolType    string
	InputText   string
	OutputText  string
	Settings    json.RawMessage
	CreditsUsed int
	CreatedAt   time.Time
}
