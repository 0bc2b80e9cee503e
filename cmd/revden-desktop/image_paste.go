package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/revden/revden/internal/terminal"
)

// ImagePasteResult contains the result of an image paste or drop operation
type ImagePasteResult struct {
	Success   bool   `json:"success"`
	NoImage   bool   `json:"noImage,omitempty"`
	Error     string `json:"error,omitempty"`
	ByteCount int    `json:"byteCount,omitempty"`
}

// emitToast sends a toast notification to the frontend
func emitToast(ctx context.Context, message, toastType string) {
	if ctx == nil {
		return
	}
	runtime.EventsEmit(ctx, "toast:show", map[string]string{
		"message": message,
		"type":    toastType, // "info", "success", "error", "warning"
	})
}

// HandlePastedImage handles Ctrl+V image paste. The frontend reads the
// clipboard through the browser API and hands us the PNG bytes base64
// encoded; we validate and inject them into the session as an inline-image
// escape so the agent receives the image instead of pasted garbage.
//
// Returns:
//   - ImagePasteResult with success=true and byteCount on success
//   - ImagePasteResult with noImage=true if the payload is empty
//   - ImagePasteResult with error message on failure
func (a *App) HandlePastedImage(sessionID, imageBase64 string) ImagePasteResult {
	if imageBase64 == "" {
		return ImagePasteResult{NoImage: true}
	}

	imgData, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		log.Printf("[image-paste] base64 decode failed: %v", err)
		emitToast(a.ctx, "Failed to read pasted image", "error")
		return ImagePasteResult{Error: err.Error()}
	}

	if err := terminal.ValidateImageData(imgData); err != nil {
		log.Printf("[image-paste] validation failed: %v", err)
		emitToast(a.ctx, err.Error(), "error")
		return ImagePasteResult{Error: err.Error()}
	}

	ctrl := a.controller(sessionID)
	if ctrl == nil {
		return ImagePasteResult{Error: fmt.Sprintf("session %s not found", sessionID)}
	}

	sizeMB := float64(len(imgData)) / (1024 * 1024)
	if sizeMB > 0.5 {
		emitToast(a.ctx, fmt.Sprintf("Attaching image (%.1f MB)...", sizeMB), "info")
	}

	if err := ctrl.WriteImages([][]byte{imgData}); err != nil {
		log.Printf("[image-paste] inject failed: %v", err)
		emitToast(a.ctx, "Image paste failed", "error")
		return ImagePasteResult{Error: err.Error()}
	}

	log.Printf("[image-paste] success: %d bytes -> session %s", len(imgData), sessionID)

	return ImagePasteResult{
		Success:   true,
		ByteCount: len(imgData),
	}
}
