package model

type CorrectTextRequest struct {
	Text string `json:"text"`
}

type CorrectTextResponse struct {
	Original   string `json:"original"`
	Corrected  string `json:"corrected"`
	WasChanged bool   `json:"wasChanged"`
}

type UploadResult struct {
	Success      bool        `json:"success"`
	FileURL      string      `json:"fileUrl"`
	ContentType  ContentType `json:"contentType"`
	OriginalName string      `json:"originalName"`
	MimeType     string      `json:"mimetype"`
	Size         int64       `json:"size"`
}
