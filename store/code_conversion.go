package store

type CodeConversion struct {
	ID             string
	MessageID      string
	UserID         string
	SourceLanguage string
	TargetLanguage string
	SourceCode     string
	ConvertedCode  string
	ModelID        string
	CreatedTs      int64
}

type FindCodeConversion struct {
	ID        *string
	MessageID *string
	UserID    *string
}
