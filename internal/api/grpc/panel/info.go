package panel

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/alarm-panel/internal/domain/alarm"
)

// Struct field names.
const (
	fieldUniqueID          = "unique_id"
	fieldName              = "name"
	fieldState             = "state"
	fieldAvailable         = "available"
	fieldCodeFormat        = "code_format"
	fieldSupportedFeatures = "supported_features"
	fieldCodeArmRequired   = "code_arm_required"
	fieldChangedAt         = "changed_at"
	fieldCode              = "code"
)

var errMalformedPanel = errors.New("malformed panel message")

// PanelInfo is the snapshot returned by every AlarmPanelService method.
//
//nolint:revive // panel.PanelInfo reads better at call sites than panel.Info.
type PanelInfo struct {
	// UniqueID is the config entry id.
	UniqueID string
	// Name is the device name.
	Name string
	// State is empty when the panel status is not recognized.
	State string
	// Available reports whether the state is known and fresh.
	Available bool
	// CodeFormat is number or text.
	CodeFormat string
	// SupportedFeatures lists the optional capabilities.
	SupportedFeatures []string
	// CodeArmRequired reports whether arming needs a code.
	CodeArmRequired bool
	// ChangedAt is zero until a status has been seen.
	ChangedAt time.Time
}

// Describe takes a snapshot of p.
func Describe(p domain.Panel) PanelInfo {
	info := PanelInfo{
		UniqueID:          p.UniqueID(),
		Name:              p.Name(),
		Available:         p.Available(),
		CodeFormat:        string(p.CodeFormat()),
		SupportedFeatures: p.SupportedFeatures().Names(),
		CodeArmRequired:   p.CodeArmRequired(),
		ChangedAt:         p.Status().ChangedAt,
	}

	if state, ok := p.State(); ok {
		info.State = state.String()
	}

	return info
}

// ToStruct encodes the snapshot.
func (i PanelInfo) ToStruct() (*structpb.Struct, error) {
	features := make([]any, 0, len(i.SupportedFeatures))
	for _, f := range i.SupportedFeatures {
		features = append(features, f)
	}

	fields := map[string]any{
		fieldUniqueID:          i.UniqueID,
		fieldName:              i.Name,
		fieldState:             i.State,
		fieldAvailable:         i.Available,
		fieldCodeFormat:        i.CodeFormat,
		fieldSupportedFeatures: features,
		fieldCodeArmRequired:   i.CodeArmRequired,
	}

	if !i.ChangedAt.IsZero() {
		fields[fieldChangedAt] = i.ChangedAt.UTC().Format(time.RFC3339Nano)
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode panel: %w", err)
	}

	return s, nil
}

// PanelInfoFromStruct decodes a snapshot produced by ToStruct.
func PanelInfoFromStruct(s *structpb.Struct) (PanelInfo, error) {
	if s == nil {
		return PanelInfo{}, errMalformedPanel
	}

	fields := s.GetFields()

	info := PanelInfo{
		UniqueID:        fields[fieldUniqueID].GetStringValue(),
		Name:            fields[fieldName].GetStringValue(),
		State:           fields[fieldState].GetStringValue(),
		Available:       fields[fieldAvailable].GetBoolValue(),
		CodeFormat:      fields[fieldCodeFormat].GetStringValue(),
		CodeArmRequired: fields[fieldCodeArmRequired].GetBoolValue(),
	}

	if info.UniqueID == "" {
		return PanelInfo{}, fmt.Errorf("%w: missing %s", errMalformedPanel, fieldUniqueID)
	}

	for _, v := range fields[fieldSupportedFeatures].GetListValue().GetValues() {
		info.SupportedFeatures = append(info.SupportedFeatures, v.GetStringValue())
	}

	if raw := fields[fieldChangedAt].GetStringValue(); raw != "" {
		changedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return PanelInfo{}, fmt.Errorf("%w: %s: %w", errMalformedPanel, fieldChangedAt, err)
		}

		info.ChangedAt = changedAt
	}

	return info, nil
}

// NewCommandRequest builds a command request; a nil code sends none.
func NewCommandRequest(code *string) *structpb.Struct {
	req := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	if code != nil {
		req.Fields[fieldCode] = structpb.NewStringValue(*code)
	}

	return req
}

// codeFromRequest returns the code of a command request, nil when absent.
func codeFromRequest(req *structpb.Struct) *string {
	v, ok := req.GetFields()[fieldCode]
	if !ok {
		return nil
	}

	code := v.GetStringValue()

	return &code
}
