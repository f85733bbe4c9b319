package feedback

import "time"

// SenderType says which side of the thread a message comes from.
type SenderType string

const (
	SenderTypeUser  SenderType = "user"
	SenderTypeCoach SenderType = "coach"
)

func (s SenderType) Valid() bool {
	return s == SenderTypeUser || s == SenderTypeCoach
}

// Opposite returns the other side of the thread.
func (s SenderType) Opposite() SenderType {
	if s == SenderTypeUser {
		return SenderTypeCoach
	}
	return SenderTypeUser
}

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeQuestion MessageType = "question"
	MessageTypeFeedback MessageType = "feedback"
	MessageTypeProgress MessageType = "progress"
	MessageTypeAnswer   MessageType = "answer"
)

func (m MessageType) Valid() bool {
	switch m {
	case MessageTypeText, MessageTypeQuestion, MessageTypeFeedback, MessageTypeProgress, MessageTypeAnswer:
		return true
	default:
		return false
	}
}

// Message is one entry of a feedback thread attached to a training
// evaluation. ReadAt and ReadBy stay null until the other side of the
// thread opens it.
type Message struct {
	ID                   int         `json:"id"`
	UserTrainingResultID int         `json:"user_training_result_id"`
	SenderID             string      `json:"sender_id"`
	SenderType           SenderType  `json:"sender_type"`
	Message              string      `json:"message"`
	MessageType          MessageType `json:"message_type"`
	CreatedAt            time.Time   `json:"created_at"`
	ReadAt               *time.Time  `json:"read_at"`
	ReadBy               *string     `json:"read_by"`
}
