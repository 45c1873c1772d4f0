package canvas

import (
	"context"

	"github.com/vanderheijden86/filecanvas/pkg/blob"
)

// StartTracking seeds a progress entry the way UploadFile does.
func (c *UploadController) StartTracking(f blob.File) string {
	id, _ := c.begin(context.Background(), f)
	return id
}

// ReportProgress invokes the transfer progress callback for id.
func (c *UploadController) ReportProgress(id string, p blob.Progress) {
	c.reportProgress(id, p)
}
