package mailbody

// Part is one node of a decoded message payload tree. A part either carries
// its own base64url-encoded body or a list of child parts (multipart/*).
type Part struct {
	MimeType string
	Filename string
	Body     string
	Size     int64
	Parts    []*Part
}

// AttachmentMeta describes an attachment found in a payload tree.
type AttachmentMeta struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// CollectAttachments walks the payload tree and returns metadata for every
// part that carries a filename.
func CollectAttachments(root *Part) []AttachmentMeta {
	var attachments []AttachmentMeta

	var walk func(p *Part, depth int)
	walk = func(p *Part, depth int) {
		if p == nil || depth > maxDepth {
			return
		}
		if p.Filename != "" {
			attachments = append(attachments, AttachmentMeta{
				Filename: p.Filename,
				MimeType: p.MimeType,
				Size:     p.Size,
			})
		}
		for _, child := range p.Parts {
			walk(child, depth+1)
		}
	}
	walk(root, 0)

	return attachments
}
