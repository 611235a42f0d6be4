package models

// Resume is the metadata of an uploaded résumé file. The bytes live in the
// blob bucket under BlobKey, which is the hex sha256 of the content.
type Resume struct {
	ID          string `json:"_id,omitempty"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	BlobKey     string `json:"blobKey"`
	UploadedBy  string `json:"uploadedBy"`
	CreatedAt   string `json:"createdAt"`
}
