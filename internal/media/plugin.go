package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"go.uber.org/zap"

	"github.com/HerbHall/atelier/internal/config"
	"github.com/HerbHall/atelier/internal/plugin"
	"github.com/HerbHall/atelier/internal/server"
	"github.com/HerbHall/atelier/internal/version"
)

var (
	_ plugin.Plugin       = (*Plugin)(nil)
	_ plugin.HTTPProvider = (*Plugin)(nil)
)

// formOverhead is the allowance for multipart framing on top of the image.
const formOverhead = 64 << 10

// Plugin serves image uploads for the collection forms.
type Plugin struct {
	bucket   Bucket
	folders  []string
	opts     []UploaderOption
	uploader *Uploader
	maxBytes int64
	logger   *zap.Logger
}

// NewPlugin returns the upload plugin writing to b. Uploads are accepted only
// into the named folders.
func NewPlugin(b Bucket, folders []string, opts ...UploaderOption) *Plugin {
	return &Plugin{bucket: b, folders: folders, opts: opts, logger: zap.NewNop()}
}

func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "media",
		Version:     version.Short(),
		Description: "Image uploads",
	}
}

// Init reads max_bytes, which overrides any WithMaxBytes option.
func (p *Plugin) Init(cfg *config.Config, logger *zap.Logger) error {
	if logger != nil {
		p.logger = logger
	}
	opts := slices.Clone(p.opts)
	if cfg.IsSet("max_bytes") {
		if n := cfg.GetInt("max_bytes"); n > 0 {
			opts = append(opts, WithMaxBytes(int64(n)))
		}
	}
	p.uploader = NewUploader(p.bucket, opts...)
	p.maxBytes = p.uploader.maxBytes
	return nil
}

func (p *Plugin) Start(context.Context) error { return nil }
func (p *Plugin) Stop() error                 { return nil }

func (p *Plugin) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/upload", Handler: p.handleUpload},
		{Method: "GET", Path: "/folders", Handler: p.handleFolders},
	}
}

func (p *Plugin) handleFolders(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"folders": p.folders, "max_bytes": p.maxBytes})
}

// handleUpload stores the multipart "file" part in the "folder" form value.
func (p *Plugin) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, p.maxBytes+formOverhead)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			server.UnprocessableEntity(w, fmt.Sprintf("%s: limit is %d bytes", ErrTooLarge, p.maxBytes), r.URL.Path)
			return
		}
		server.BadRequest(w, "expected a multipart form: "+err.Error(), r.URL.Path)
		return
	}
	defer r.MultipartForm.RemoveAll()

	folder := r.FormValue("folder")
	if !slices.Contains(p.folders, folder) {
		server.UnprocessableEntity(w, fmt.Sprintf("%s: %q", ErrBadFolder, folder), r.URL.Path)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		server.UnprocessableEntity(w, ErrNotImage.Error(), r.URL.Path)
		return
	}
	defer file.Close()

	res, err := p.uploader.Upload(r.Context(), folder, header.Filename, file)
	switch {
	case err == nil:
	case errors.Is(err, ErrExists):
		server.Conflict(w, err.Error(), r.URL.Path)
		return
	case errors.Is(err, ErrNotImage), errors.Is(err, ErrTooLarge), errors.Is(err, ErrEmpty),
		errors.Is(err, ErrBadFolder), errors.Is(err, ErrBadObjName):
		server.UnprocessableEntity(w, err.Error(), r.URL.Path)
		return
	default:
		p.logger.Warn("upload failed", zap.String("folder", folder), zap.Error(err))
		server.WriteError(w, r, err)
		return
	}

	p.logger.Info("image uploaded", zap.String("name", res.Name), zap.Int("size", res.Size))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", res.URL)
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(res)
}
