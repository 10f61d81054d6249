package errors

import (
	"errors"
)

var (
	// General Errors
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotInitialized  = errors.New("component not initialized")

	// Portal Session Errors
	ErrPortalConnection = errors.New("failed to connect to portal")
	ErrPortalResponse   = errors.New("unexpected portal response")
	ErrPortalOperation  = errors.New("portal operation rejected")

	// Publish Workflow Errors
	ErrServiceDeletion  = errors.New("failed to delete existing service")
	ErrDeletionTimeout  = errors.New("timed out waiting for service deletion")
	ErrPublishConflict  = errors.New("publish conflict: portal returned no service")
	ErrMetadataUpdate   = errors.New("failed to update service metadata")
	ErrDefinitionUpdate = errors.New("failed to update service definition")
	ErrSharing          = errors.New("failed to set sharing level")

	// Health Check Errors
	ErrEndpointUnreachable = errors.New("endpoint is not accessible")
	ErrUnexpectedContent   = errors.New("unexpected response content")
	ErrProbePublishFailed  = errors.New("publishing probe failed")

	// User Audit Errors
	ErrUserLookup = errors.New("failed to retrieve user details")

	// Report & Notification Errors
	ErrReportWrite  = errors.New("failed to write report file")
	ErrChartRender  = errors.New("failed to render chart")
	ErrMailDelivery = errors.New("failed to send email")

	// Configuration Errors
	ErrConfigInvalid = errors.New("invalid configuration")
)
