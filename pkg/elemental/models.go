package elemental

// EventID identifies a live event on the appliance.
type EventID string

// Event statuses reported by the appliance.
const (
	StatusPending        = "pending"
	StatusRunning        = "running"
	StatusPreprocessing  = "preprocessing"
	StatusPostprocessing = "postprocessing"
	StatusError          = "error"
	StatusComplete       = "complete"
)

// EventStatus is the summary returned by DescribeEvent.
type EventStatus struct {
	Status    string `json:"status"`
	OriginURL string `json:"origin_url,omitempty"`
	BackupURL string `json:"backup_url,omitempty"`
}

// Device is an input capture device known to the appliance.
type Device struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	DeviceName   string `json:"device_name"`
	DeviceNumber string `json:"device_number"`
	DeviceType   string `json:"device_type"`
	Description  string `json:"description"`
	Channel      string `json:"channel"`
	ChannelType  string `json:"channel_type"`
	Quad         bool   `json:"quad"`
	// Availability is false when an active event references DeviceName.
	Availability bool `json:"availability"`
}

// LiveEvent is one entry of the live event listing.
type LiveEvent struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	DeviceNames []string `json:"device_names,omitempty"`
}

// PreviewResult points at a generated input thumbnail.
type PreviewResult struct {
	ImageID    string `json:"preview_image_id"`
	PreviewURL string `json:"preview_url"`
}
