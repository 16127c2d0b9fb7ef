package snooapi

import (
	"context"
	"time"
)

type SSID struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Device is a Snoo paired with the account
type Device struct {
	SerialNumber         string    `json:"serialNumber"`
	Baby                 string    `json:"baby"`
	FirmwareVersion      string    `json:"firmwareVersion"`
	FirmwareUpdateDate   time.Time `json:"firmwareUpdateDate"`
	LastProvisionSuccess time.Time `json:"lastProvisionSuccess"`
	LastSSID             SSID      `json:"lastSSID"`
	Timezone             string    `json:"timezone"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// BabySettings are the per-baby soothing preferences stored in the cloud
type BabySettings struct {
	Weaning             bool   `json:"weaning"`
	ResponsivenessLevel string `json:"responsivenessLevel"`
	MinimalLevel        string `json:"minimalLevel"`
	MotionLimiter       bool   `json:"motionLimiter"`
	SoothingLevelVolume string `json:"soothingLevelVolume"`
}

type Snoo interface {
	WithTimeout(d time.Duration) Snoo
	Devices(ctx context.Context) ([]Device, error)
	BabySettings(ctx context.Context, babyID string) (*BabySettings, error)
}
