package interfaces

import (
	"context"

	"github.com/KJWesthoff/ventiscan/internal/model"
)

// ScannerService is the typed surface of the external scanner API. The
// production implementation lives in internal/scanner; tests inject
// scripted fakes.
type ScannerService interface {
	// StartScan validates the config and launches a scan.
	StartScan(ctx context.Context, cfg model.ScanConfig) (*model.StartScanResult, error)

	// GetStatus reads the current status snapshot for a scan.
	GetStatus(ctx context.Context, scanID string) (*model.ScanStatus, error)

	// GetFindings fetches raw findings for a scan.
	GetFindings(ctx context.Context, scanID string) ([]model.RawFinding, error)

	// ListScanners returns the service scanner catalog.
	ListScanners(ctx context.Context) ([]model.ScannerInfo, error)

	// ListScans returns prior scans known to the service.
	ListScans(ctx context.Context) ([]model.ScanListEntry, error)
}
