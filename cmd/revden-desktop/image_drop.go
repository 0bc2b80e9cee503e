package main

import (
	"fmt"
	"log"
	"os"

	"github.com/revden/revden/internal/terminal"
)

// HandleFileDrop processes files dropped onto a terminal pane. Non-image
// files are filtered out by magic bytes, every surviving image is injected
// into the session as an inline-image escape.
func (a *App) HandleFileDrop(sessionID string, filePaths []string) ImagePasteResult {
	if len(filePaths) == 0 {
		return ImagePasteResult{Error: "no files provided"}
	}

	ctrl := a.controller(sessionID)
	if ctrl == nil {
		return ImagePasteResult{Error: fmt.Sprintf("session %s not found", sessionID)}
	}

	var images [][]byte
	var totalBytes int

	for _, p := range filePaths {
		// Check file size before reading into memory
		info, err := os.Stat(p)
		if err != nil {
			log.Printf("[image-drop] cannot stat %s: %v", p, err)
			continue
		}
		if info.Size() > terminal.MaxImageSize {
			log.Printf("[image-drop] file too large: %s (%d bytes)", p, info.Size())
			emitToast(a.ctx, fmt.Sprintf("Image too large: %s", p), "warning")
			continue
		}

		data, err := os.ReadFile(p)
		if err != nil {
			log.Printf("[image-drop] failed to read %s: %v", p, err)
			continue
		}
		if !terminal.IsImageData(data) {
			log.Printf("[image-drop] not an image: %s", p)
			continue
		}

		images = append(images, data)
		totalBytes += len(data)
	}

	if len(images) == 0 {
		emitToast(a.ctx, "No image files detected in drop", "warning")
		return ImagePasteResult{Error: "no image files in drop"}
	}

	if err := ctrl.WriteImages(images); err != nil {
		log.Printf("[image-drop] inject failed: %v", err)
		emitToast(a.ctx, "Image drop failed", "error")
		return ImagePasteResult{Error: err.Error()}
	}

	emitToast(a.ctx, fmt.Sprintf("Attached %d image(s)", len(images)), "success")

	log.Printf("[image-drop] injected %d image(s) (%d bytes) -> session %s", len(images), totalBytes, sessionID)

	return ImagePasteResult{
		Success:   true,
		ByteCount: totalBytes,
	}
}
