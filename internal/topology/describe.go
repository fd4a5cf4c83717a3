package topology

import (
	"context"
	"errors"
	"fmt"
)

// Describe reads the descriptor of one part. A failure on any fixed field is returned as a
// READ_FAILURE error. A failing control-interface index only drops that entry and is
// returned as a diagnostic. location is used to label errors.
func Describe(ctx context.Context, part Part, location string) (NodeInfo, []Diagnostic, error) {
	var info NodeInfo
	var diags []Diagnostic
	var err error

	if info.Name, err = part.Name(); err != nil {
		return info, nil, newError(ErrCodeReadFailure, "read name", location, err)
	}
	if info.GlobalID, err = part.GlobalID(); err != nil {
		return info, nil, newError(ErrCodeReadFailure, "read global id", location, err)
	}
	if location == "" {
		location = info.GlobalID
	}
	if info.LocalID, err = part.LocalID(); err != nil {
		return info, nil, newError(ErrCodeReadFailure, "read local id", location, err)
	}
	if info.SubType, err = part.SubType(); err != nil {
		return info, nil, newError(ErrCodeReadFailure, "read sub type", location, err)
	}
	if info.PartType, err = part.PartType(); err != nil {
		return info, nil, newError(ErrCodeReadFailure, "read part type", location, err)
	}

	count, err := part.ControlInterfaceCount()
	if err != nil {
		diags = append(diags, Diagnose(newError(ErrCodeReadFailure, "read control interface count", location, err)))
	}
	for i := 0; i < count; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return info, diags, newError(ErrCodeCancelled, "read control interfaces", location, ctxErr)
		}
		ci, ciErr := part.ControlInterfaceAt(i)
		if ciErr != nil {
			diags = append(diags, Diagnose(newError(ErrCodeReadFailure,
				fmt.Sprintf("read control interface %d", i), location, ciErr)))
			continue
		}
		info.ControlInterfaces = append(info.ControlInterfaces, ci)
	}

	if activator, ok := part.(ControlActivator); ok {
		diags = append(diags, describeControls(activator, &info, location)...)
	}

	return info, diags, nil
}

// describeControls fills volume and mute state for parts that expose them.
func describeControls(activator ControlActivator, info *NodeInfo, location string) []Diagnostic {
	var diags []Diagnostic

	volume, err := activator.VolumeLevel()
	switch {
	case errors.Is(err, ErrNoInterface):
	case err != nil:
		diags = append(diags, Diagnose(newError(ErrCodeReadFailure, "activate volume level", location, err)))
	default:
		vi, vDiags := readVolume(volume, location)
		info.Volume = vi
		diags = append(diags, vDiags...)
	}

	mute, err := activator.Mute()
	switch {
	case errors.Is(err, ErrNoInterface):
	case err != nil:
		diags = append(diags, Diagnose(newError(ErrCodeReadFailure, "activate mute", location, err)))
	default:
		muted, mErr := mute.Muted()
		if mErr != nil {
			diags = append(diags, Diagnose(newError(ErrCodeReadFailure, "read mute", location, mErr)))
		} else {
			info.Muted = &muted
		}
	}

	return diags
}

func readVolume(volume VolumeLevel, location string) (*VolumeInfo, []Diagnostic) {
	channels, err := volume.ChannelCount()
	if err != nil {
		return nil, []Diagnostic{Diagnose(newError(ErrCodeReadFailure, "read channel count", location, err))}
	}

	var diags []Diagnostic
	vi := &VolumeInfo{Channels: make([]ChannelLevel, 0, channels)}
	for ch := 0; ch < channels; ch++ {
		minDB, maxDB, stepDB, rangeErr := volume.LevelRange(ch)
		if rangeErr != nil {
			diags = append(diags, Diagnose(newError(ErrCodeReadFailure,
				fmt.Sprintf("read level range of channel %d", ch), location, rangeErr)))
			continue
		}
		level, levelErr := volume.Level(ch)
		if levelErr != nil {
			diags = append(diags, Diagnose(newError(ErrCodeReadFailure,
				fmt.Sprintf("read level of channel %d", ch), location, levelErr)))
			continue
		}
		vi.Channels = append(vi.Channels, ChannelLevel{
			Channel: ch,
			LevelDB: level,
			MinDB:   minDB,
			MaxDB:   maxDB,
			StepDB:  stepDB,
		})
	}
	return vi, diags
}
