package territory

// Status is a project's workflow label. It only affects styling.
type Status string

// Known project statuses.
const (
	StatusPending       Status = "pending"
	StatusLandApproval  Status = "landApproval"
	StatusNGOAssigned   Status = "ngoAssigned"
	StatusDroneAssigned Status = "droneAssigned"
	StatusAdminApproval Status = "adminApproval"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
)

// DefaultColor is used for statuses outside the palette.
const DefaultColor = "#6b7280"

var palette = map[Status]string{
	StatusPending:       "#eab308",
	StatusLandApproval:  "#f97316",
	StatusNGOAssigned:   "#3b82f6",
	StatusDroneAssigned: "#8b5cf6",
	StatusAdminApproval: "#06b6d4",
	StatusApproved:      "#22c55e",
	StatusRejected:      "#ef4444",
}

// Base style values and the increments applied by hover and selection.
const (
	baseStrokeWeight = 2
	baseFillOpacity  = 0.2

	hoverWeightStep  = 1
	hoverOpacityStep = 0.15

	selectWeightStep  = 2
	selectOpacityStep = 0.25
)

// Style is how a territory outline is drawn.
type Style struct {
	StrokeColor  string  `json:"strokeColor"`
	StrokeWeight int     `json:"strokeWeight"`
	FillOpacity  float64 `json:"fillOpacity"`
	FillColor    string  `json:"fillColor"`
}

// Known reports whether s has its own colour.
func (s Status) Known() bool {
	_, ok := palette[s]
	return ok
}

// Color returns the status colour, or DefaultColor.
func (s Status) Color() string {
	if c, ok := palette[s]; ok {
		return c
	}
	return DefaultColor
}

// KnownStatuses lists the statuses with their own colour in workflow order.
func KnownStatuses() []Status {
	return []Status{
		StatusPending,
		StatusLandApproval,
		StatusNGOAssigned,
		StatusDroneAssigned,
		StatusAdminApproval,
		StatusApproved,
		StatusRejected,
	}
}

// StyleFor returns the style for a territory. Hover and selection each add
// weight and opacity on their own, so a hovered or selected outline is never
// lighter than a plain one.
func StyleFor(status Status, hovered, selected bool) Style {
	color := status.Color()
	s := Style{
		StrokeColor:  color,
		StrokeWeight: baseStrokeWeight,
		FillOpacity:  baseFillOpacity,
		FillColor:    color,
	}
	if hovered {
		s.StrokeWeight += hoverWeightStep
		s.FillOpacity += hoverOpacityStep
	}
	if selected {
		s.StrokeWeight += selectWeightStep
		s.FillOpacity += selectOpacityStep
	}
	return s
}
