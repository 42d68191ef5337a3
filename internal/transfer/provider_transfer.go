package transfer

// MetaErrorResponse is the Graph API error envelope shared by the
// Facebook and Instagram publishing endpoints.
type MetaErrorResponse struct {
	Error struct {
		Message        string `json:"message"`
		Type           string `json:"type"`
		Code           int    `json:"code"`
		ErrorSubcode   int    `json:"error_subcode"`
		IsTransient    bool   `json:"is_transient"`
		ErrorUserTitle string `json:"error_user_title"`
		ErrorUserMsg   string `json:"error_user_msg"`
		FbtraceID      string `json:"fbtrace_id"`
	} `json:"error"`
}

type MetaPublishResponse struct {
	ID           string `json:"id"`
	PostID       string `json:"post_id"`
	PermalinkURL string `json:"permalink_url"`
}

type MetaContainerStatus struct {
	StatusCode string `json:"status_code"`
	ID         string `json:"id"`
}

// LinkedInInitUploadResponse comes back from the images initializeUpload
// action: a one-shot upload URL plus the image URN to attach to the post.
type LinkedInInitUploadResponse struct {
	Value struct {
		UploadURL string `json:"uploadUrl"`
		Image     string `json:"image"`
	} `json:"value"`
}

type LinkedInErrorResponse struct {
	Message       string `json:"message"`
	ServiceErrCode int   `json:"serviceErrorCode"`
	Status        int    `json:"status"`
}
