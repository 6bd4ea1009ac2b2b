package enum

type Source string

const (
	SourceEmail  Source = "email"
	SourceUpload Source = "upload"
)

func (s Source) String() string {
	return string(s)
}
