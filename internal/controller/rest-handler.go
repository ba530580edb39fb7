package controller

import (
	"errors"
	"net/http"

	"github.com/watchroom/server/internal/filestore"
	"github.com/watchroom/server/pkg/rest"
)

type uploadVideoResponse struct {
	Path string `json:"path"`
}

// uploadVideo accepts a single video payload and returns the server-relative
// path the client passes verbatim as a set-video payload. Wrong media types
// are rejected here and never reach the synchronization core.
func (c controller) uploadVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, c.uploadLimit)

	file, header, err := r.FormFile("video")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.logger.InfoContext(r.Context(), "upload rejected: too large", "limit_bytes", maxBytesErr.Limit)
			rest.WriteJSON(w, http.StatusRequestEntityTooLarge, rest.Envelope{"error": "video is too large"})
			return
		}

		c.logger.InfoContext(r.Context(), "upload rejected: bad form", "error", err)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "video file is required"})
		return
	}
	defer file.Close()

	name, err := c.files.Save(header.Filename, file)
	if err != nil {
		if errors.Is(err, filestore.ErrUnsupportedType) {
			c.logger.InfoContext(r.Context(), "upload rejected: unsupported type", "filename", header.Filename)
			rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "unsupported video type"})
			return
		}

		c.logger.ErrorContext(r.Context(), "failed to save video", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to save video"})
		return
	}

	c.logger.InfoContext(r.Context(), "video uploaded", "filename", header.Filename, "stored_name", name)

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": uploadVideoResponse{
		Path: "/media/" + name,
	}})
}

func (c controller) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.roomService.Stats(r.Context())
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to get stats", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to get stats"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": stats})
}
