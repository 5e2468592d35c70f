package chatcli

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/contenox/chatsync/chattypes"
)

const maxAttachmentSize = 20 << 20

// readAttachment loads a local file as a pending attachment, guessing its content type.
func readAttachment(path string) (chattypes.PendingAttachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return chattypes.PendingAttachment{}, err
	}
	if info.IsDir() {
		return chattypes.PendingAttachment{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > maxAttachmentSize {
		return chattypes.PendingAttachment{}, fmt.Errorf("%s is larger than %d bytes", path, maxAttachmentSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return chattypes.PendingAttachment{}, err
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return chattypes.PendingAttachment{
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}, nil
}
