package adb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/huanfeng/ownerkit/internal/errors"
)

// Device represents an ADB device with detailed information
type Device struct {
	ID           string    `json:"id"`
	Status       string    `json:"status"`
	Model        string    `json:"model"`
	Product      string    `json:"product"`
	Device       string    `json:"device"`
	Transport    string    `json:"transport"`
	AndroidAPI   int       `json:"android_api"`
	AndroidVer   string    `json:"android_version"`
	Manufacturer string    `json:"manufacturer"`
	Brand        string    `json:"brand"`
	LastSeen     time.Time `json:"last_seen"`
	IsEmulator   bool      `json:"is_emulator"`
}

// Online reports whether adb can talk to the device.
func (d Device) Online() bool {
	return d.Status == "device"
}

// DisplayName returns a user-friendly device name
func (d Device) DisplayName() string {
	if d.Model != "" {
		if d.IsEmulator {
			return fmt.Sprintf("%s (Emulator: %s)", d.Model, d.ID)
		}
		return fmt.Sprintf("%s (%s)", d.Model, d.ID)
	}
	if d.IsEmulator {
		return fmt.Sprintf("Emulator (%s)", d.ID)
	}
	return d.ID
}

// Details returns the display name with Android version and vendor.
func (d Device) Details() string {
	details := d.DisplayName()

	if d.AndroidVer != "" {
		details += fmt.Sprintf(" - Android %s", d.AndroidVer)
		if d.AndroidAPI > 0 {
			details += fmt.Sprintf(" (API %d)", d.AndroidAPI)
		}
	}

	switch {
	case d.Manufacturer != "" && d.Brand != "" && !strings.EqualFold(d.Manufacturer, d.Brand):
		details += fmt.Sprintf(" - %s %s", d.Manufacturer, d.Brand)
	case d.Brand != "":
		details += fmt.Sprintf(" - %s", d.Brand)
	case d.Manufacturer != "":
		details += fmt.Sprintf(" - %s", d.Manufacturer)
	}
	return details
}

// DeviceStatus groups devices by connection state.
type DeviceStatus struct {
	Online       []Device `json:"online"`
	Offline      []Device `json:"offline"`
	Unauthorized []Device `json:"unauthorized"`
	Total        int      `json:"total"`
}

// GroupDevices sorts devices into a DeviceStatus.
func GroupDevices(devices []Device) *DeviceStatus {
	status := &DeviceStatus{
		Online:       []Device{},
		Offline:      []Device{},
		Unauthorized: []Device{},
		Total:        len(devices),
	}
	for _, d := range devices {
		switch d.Status {
		case "device":
			status.Online = append(status.Online, d)
		case "offline":
			status.Offline = append(status.Offline, d)
		case "unauthorized":
			status.Unauthorized = append(status.Unauthorized, d)
		}
	}
	return status
}

// Devices lists attached devices. Online devices are enriched with build
// properties.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	out, err := c.unbound().run(ctx, "devices", "-l")
	if err != nil {
		return nil, err
	}

	devices := parseDevices(out, c.now())
	for i := range devices {
		if devices[i].Online() {
			c.ForDevice(devices[i].ID).enrich(ctx, &devices[i])
		}
	}
	return devices, nil
}

// DeviceInfo returns the bound device.
func (c *Client) DeviceInfo(ctx context.Context) (*Device, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].ID == c.serial || (c.serial == "" && devices[i].Online()) {
			return &devices[i], nil
		}
	}
	return nil, errors.NewNotFoundError("DEVICE_NOT_FOUND", fmt.Sprintf("device %s not found", c.serial))
}

// OnlineDevices returns the serials of every online device.
func (c *Client) OnlineDevices(ctx context.Context) ([]string, error) {
	devices, err := c.Devices(ctx)
	if err != nil {
		return nil, err
	}
	var serials []string
	for _, d := range devices {
		if d.Online() {
			serials = append(serials, d.ID)
		}
	}
	return serials, nil
}

// GetProp reads one system property.
func (c *Client) GetProp(ctx context.Context, name string) (string, error) {
	out, err := c.ExecuteShellCommand(ctx, "getprop "+name)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (c *Client) unbound() *Client {
	clone := *c
	clone.serial = ""
	return &clone
}

func (c *Client) enrich(ctx context.Context, d *Device) {
	if v, err := c.GetProp(ctx, "ro.build.version.sdk"); err == nil {
		if api, err := strconv.Atoi(v); err == nil {
			d.AndroidAPI = api
		}
	}
	if v, err := c.GetProp(ctx, "ro.build.version.release"); err == nil {
		d.AndroidVer = v
	}
	if v, err := c.GetProp(ctx, "ro.product.manufacturer"); err == nil {
		d.Manufacturer = v
	}
	if v, err := c.GetProp(ctx, "ro.product.brand"); err == nil {
		d.Brand = v
	}
	if d.Model == "" {
		if v, err := c.GetProp(ctx, "ro.product.model"); err == nil {
			d.Model = v
		}
	}
}

// parseDevices reads `adb devices -l` output.
func parseDevices(out string, seen time.Time) []Device {
	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}

		d := Device{
			ID:         parts[0],
			Status:     parts[1],
			LastSeen:   seen,
			IsEmulator: strings.Contains(strings.ToLower(parts[0]), "emulator"),
		}
		for _, part := range parts[2:] {
			key, value, ok := strings.Cut(part, ":")
			if !ok {
				continue
			}
			switch key {
			case "model":
				d.Model = value
			case "product":
				d.Product = value
			case "device":
				d.Device = value
			case "transport_id":
				d.Transport = value
			}
		}
		devices = append(devices, d)
	}
	return devices
}
