package session

import (
	"errors"
	"fmt"

	"github.com/ppiankov/darklens/internal/model"
)

// Phase labels shown while a scan runs
const (
	PhaseProcessing = "Processing image..."
	PhaseConnecting = "Connecting to website..."
	PhaseCapturing  = "Capturing viewport..."
	PhaseDetecting  = "Detecting dark patterns..."
)

// Message returns the user-facing text for a scan failure
func Message(err error) string {
	var detail string
	var se *model.ScanError
	if errors.As(err, &se) {
		detail = se.Detail
	}

	switch model.KindOf(err) {
	case model.ErrUnsupportedFormat:
		return "Please upload a valid image file (PNG, JPG, WebP)."
	case model.ErrFileTooLarge:
		return "File size must be less than 5MB."
	case model.ErrReadError:
		return "Error reading file. Please try another image."
	case model.ErrInvalidURL:
		return "Please enter a valid website address, for example example.com."
	case model.ErrCaptureTimeout:
		return "The scan timed out. The website is taking too long to load."
	case model.ErrOffline:
		return "No internet connection. Please check your network."
	case model.ErrEmptyCapture:
		return "The website blocked the automated capture or loaded an empty page. Please try uploading a screenshot manually."
	case model.ErrCaptureServiceError:
		return "The screenshot service could not capture this page. Please try again or upload a screenshot manually."
	case model.ErrCaptureBlocked:
		return fmt.Sprintf("%s does not allow automated capture. Please use \"Upload Screenshot\" instead.", site(detail, "This website"))
	case model.ErrCaptureFailed:
		return fmt.Sprintf("Could not access %s. The site might be private, geo-blocked, or protected. Please use \"Upload Screenshot\" instead.", site(detail, "the website"))
	case model.ErrMissingCredentials:
		return "No API key is configured for the analysis service. Set OPENAI_API_KEY, ANTHROPIC_API_KEY or DARKLENS_LLM_API_KEY."
	case model.ErrOracleUnavailable:
		return "The analysis service is unavailable. Please try again."
	case model.ErrMalformedResponse:
		return "Analysis failed. The AI could not process this image. Please try again."
	case model.ErrScanInProgress:
		return "A scan is already running. Please wait for it to finish."
	default:
		return "Something went wrong. Please try again."
	}
}

func site(host, fallback string) string {
	if host == "" {
		return fallback
	}
	return fmt.Sprintf("%q", host)
}
