// Package bundle loads quiz bundles: zip archives holding one JSON manifest
// plus the screenshot images it references. Frame dimensions are not part of
// the manifest; they are inferred from the image bytes.
package bundle

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"path"
	"strings"

	// Registered decoders for dimension inference.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"snapquiz-service/internal/domain"
)

// Archive is a fully validated bundle: the frame set plus the raw image
// bytes keyed by their manifest-relative path.
type Archive struct {
	FrameSet domain.FrameSet
	Images   map[string][]byte
}

type boxManifest struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Order int     `json:"order"`
}

type inputManifest struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	W      float64 `json:"w"`
	H      float64 `json:"h"`
	Answer string  `json:"answer"`
}

type frameManifest struct {
	ID       string          `json:"id"`
	Image    string          `json:"image"`
	Hotspots []boxManifest   `json:"hotspots"`
	Inputs   []inputManifest `json:"inputs"`
}

// FromArchive parses a zip bundle into a validated Archive. The archive must
// hold exactly one .json manifest (an array of frame descriptors) and every
// image the manifest references. Any violation fails the whole load.
func FromArchive(quizID string, r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open bundle archive: %w", err)
	}

	var manifest *zip.File
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Clean(f.Name)
		files[name] = f
		if strings.EqualFold(path.Ext(name), ".json") {
			if manifest != nil {
				return nil, fmt.Errorf("bundle has more than one manifest: %s and %s", manifest.Name, f.Name)
			}
			manifest = f
		}
	}
	if manifest == nil {
		return nil, fmt.Errorf("bundle has no JSON manifest")
	}

	raw, err := readAll(manifest)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", manifest.Name, err)
	}
	var frames []frameManifest
	if err := json.Unmarshal(raw, &frames); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", manifest.Name, err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("manifest %s describes no frames", manifest.Name)
	}

	// Manifest paths are relative to the manifest itself.
	base := path.Dir(manifest.Name)
	arch := &Archive{
		FrameSet: domain.FrameSet{ID: quizID},
		Images:   make(map[string][]byte, len(frames)),
	}
	for i, fm := range frames {
		frame, data, err := buildFrame(i, fm, base, files)
		if err != nil {
			return nil, err
		}
		arch.FrameSet.Frames = append(arch.FrameSet.Frames, frame)
		arch.Images[frame.Image] = data
	}
	return arch, nil
}

func buildFrame(idx int, fm frameManifest, base string, files map[string]*zip.File) (domain.Frame, []byte, error) {
	if fm.Image == "" {
		return domain.Frame{}, nil, fmt.Errorf("frame %d has no image reference", idx+1)
	}
	name := path.Clean(fm.Image)
	zf, ok := files[name]
	if !ok && base != "." {
		name = path.Join(base, name)
		zf, ok = files[name]
	}
	if !ok {
		return domain.Frame{}, nil, fmt.Errorf("frame %d references missing image %q", idx+1, fm.Image)
	}
	data, err := readAll(zf)
	if err != nil {
		return domain.Frame{}, nil, fmt.Errorf("read image %s: %w", name, err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.Frame{}, nil, fmt.Errorf("decode image %s: %w", name, err)
	}

	frame := domain.Frame{
		ID:     fm.ID,
		Image:  name,
		Width:  cfg.Width,
		Height: cfg.Height,
	}
	if frame.ID == "" {
		frame.ID = fmt.Sprintf("frame-%d", idx+1)
	}
	for j, h := range fm.Hotspots {
		id := h.ID
		if id == "" {
			id = fmt.Sprintf("%s-h%d", frame.ID, j+1)
		}
		frame.Hotspots = append(frame.Hotspots, domain.Hotspot{
			ID:     id,
			Region: domain.Region{X: h.X, Y: h.Y, W: h.W, H: h.H},
			Order:  h.Order,
		})
	}
	for j, in := range fm.Inputs {
		id := in.ID
		if id == "" {
			id = fmt.Sprintf("%s-i%d", frame.ID, j+1)
		}
		frame.Inputs = append(frame.Inputs, domain.Input{
			ID:       id,
			Region:   domain.Region{X: in.X, Y: in.Y, W: in.W, H: in.H},
			Expected: in.Answer,
		})
	}
	return frame, data, nil
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
