package enum

type IngestMode string

const (
	IngestModeDirect IngestMode = "direct"
	IngestModeQueue  IngestMode = "queue"
)

func (m IngestMode) String() string {
	return string(m)
}
