package enum

type AttachmentStatus string

const (
	AttachmentStatusQueued    AttachmentStatus = "queued"
	AttachmentStatusProcessed AttachmentStatus = "processed"
	AttachmentStatusFailed    AttachmentStatus = "failed"
)

func (s AttachmentStatus) String() string {
	return string(s)
}
