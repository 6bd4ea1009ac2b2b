package dto

import "time"

// Event is the envelope published to RabbitMQ
type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id        string      `json:"id"`
	EntityId  string      `json:"entityId"`
	EventType string      `json:"eventType"`
	Data      interface{} `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uber-trace-id"`
	AppSource   string `json:"appSource"`
	Timestamp   string `json:"timestamp"`
}

// EmailIngested is published after a message's attachments were handled
type EmailIngested struct {
	MessageID           string    `json:"messageId"`
	Subject             string    `json:"subject"`
	Sender              string    `json:"sender"`
	ReceivedAt          time.Time `json:"receivedAt"`
	Mode                string    `json:"mode"` // direct, queue
	AttachmentsHandled  int       `json:"attachmentsHandled"`
	AttachmentsRejected int       `json:"attachmentsRejected"`
}

// AttachmentProcessed is published when a worker finishes a task
type AttachmentProcessed struct {
	TaskID   string `json:"taskId"`
	EmailID  string `json:"emailId"`
	Filename string `json:"filename"`
	FileType string `json:"fileType"`
	Status   string `json:"status"`
	WorkerID string `json:"workerId"`
}
