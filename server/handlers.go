// SPDX-License-Identifier: EPL-2.0

package server

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ik5/coughcap/ingest"
	"github.com/ik5/coughcap/media"
	"github.com/ik5/coughcap/recording"
)

// snapshotView adds the preview URL to a recording snapshot.
type snapshotView struct {
	Phase      string `json:"phase"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
	Fallback   bool   `json:"fallback,omitempty"`
	Handle     string `json:"handle,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
	Name       string `json:"name,omitempty"`
	MIMEType   string `json:"mime_type,omitempty"`
	Size       int    `json:"size,omitempty"`
}

func viewOf(snap recording.Snapshot) snapshotView {
	v := snapshotView{
		Phase:      string(snap.Phase),
		DurationMs: snap.DurationMs,
		Error:      snap.Error,
		Fallback:   snap.Fallback,
		Handle:     snap.Handle,
	}

	if snap.Handle != "" {
		v.PreviewURL = "/preview/" + snap.Handle
	}
	if snap.Artifact != nil {
		v.Name = snap.Artifact.Name
		v.MIMEType = snap.Artifact.MIMEType
		v.Size = snap.Artifact.Size()
	}

	return v
}

func (s *Server) recorder(c *gin.Context) bool {
	if s.opts.Recorder == nil {
		s.fail(c, ErrNoRecorder)
		return false
	}
	return true
}

func (s *Server) getRecording(c *gin.Context) {
	if !s.recorder(c) {
		return
	}
	c.JSON(http.StatusOK, viewOf(s.opts.Recorder.Snapshot()))
}

func (s *Server) startRecording(c *gin.Context) {
	if !s.recorder(c) {
		return
	}
	if err := s.opts.Recorder.Start(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(s.opts.Recorder.Snapshot()))
}

func (s *Server) stopRecording(c *gin.Context) {
	if !s.recorder(c) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.StopTimeout)
	defer cancel()

	if err := s.opts.Recorder.Stop(ctx); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(s.opts.Recorder.Snapshot()))
}

func (s *Server) clearRecording(c *gin.Context) {
	if !s.recorder(c) {
		return
	}
	if err := s.opts.Recorder.Clear(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(s.opts.Recorder.Snapshot()))
}

func (s *Server) submitRecording(c *gin.Context) {
	if !s.recorder(c) {
		return
	}

	pred, err := s.opts.Recorder.Submit(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pred)
}

// recordingEvents streams snapshots as JSON text frames until the client
// goes away.
func (s *Server) recordingEvents(c *gin.Context) {
	if !s.recorder(c) {
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	snaps, cancel := s.opts.Recorder.Subscribe()
	defer cancel()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if err := conn.WriteJSON(viewOf(snap)); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.log.Debug("websocket write failed", zap.Error(err))
				}
				return
			}
		}
	}
}

func (s *Server) upload(c *gin.Context) {
	if s.opts.Submitter == nil {
		s.fail(c, recording.ErrNoSubmitter)
		return
	}

	if s.opts.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	}

	f, err := readUpload(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	pred, err := s.opts.Submitter.Submit(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pred)
}

func readUpload(c *gin.Context) (media.File, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return media.File{}, ingest.ErrTooLarge
		}
		return media.File{}, ErrMissingFile
	}

	r, err := fh.Open()
	if err != nil {
		return media.File{}, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return media.File{}, err
	}

	return media.File{
		Name:     fh.Filename,
		MIMEType: declaredType(fh.Header.Get("Content-Type")),
		Data:     data,
	}, nil
}

// declaredType treats a generic binary type as no declaration so the
// validator falls back to the file extension.
func declaredType(ct string) string {
	if ct == "" {
		return ""
	}
	if base, _, err := mime.ParseMediaType(ct); err == nil && base == "application/octet-stream" {
		return ""
	}
	return ct
}

func (s *Server) preview(c *gin.Context) {
	if s.opts.Previews == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "preview not found"})
		return
	}

	f, ok := s.opts.Previews.Get(c.Param("handle"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "preview not found"})
		return
	}

	c.Header("Content-Disposition", "inline; filename="+strconv.Quote(f.Name))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, f.MIMEType, f.Data)
}
