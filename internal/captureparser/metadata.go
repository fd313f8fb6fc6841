package captureparser

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/jlab/wfbrowser/internal/model"
)

// Metadata line grammars, most specific first. Examples:
//
//	# PV1=5.6 @ -.5(-45.9)
//	# PV2='ABC' @ 0(-000.4)
//	# PV3=unavailable @ 0
//	# PV4=not archived
const num = `([\-0-9.e]+)`

var (
	unarchivedRe  = regexp.MustCompile(`^# ([^=]+)=not archived$`)
	unavailableRe = regexp.MustCompile(`^# ([^=]+)=unavailable @ ` + num + `$`)
	numberRe      = regexp.MustCompile(`^# ([^=]+)=` + num + ` @ ` + num + `\(` + num + `\)$`)
	stringRe      = regexp.MustCompile(`^# ([^=]+)='(.*)' @ ` + num + `\(` + num + `\)$`)
)

// ParseMetadataLine parses one "# name=..." header line of a capture file.
func ParseMetadataLine(line string) (model.Metadata, error) {
	if m := unarchivedRe.FindStringSubmatch(line); m != nil {
		return model.Metadata{Name: m[1], Value: model.UnarchivedValue{}}, nil
	}

	if m := unavailableRe.FindStringSubmatch(line); m != nil {
		off, err := parseNumber(m[2], line)
		if err != nil {
			return model.Metadata{}, err
		}
		return model.Metadata{Name: m[1], Value: model.UnavailableValue{Offset: off}}, nil
	}

	if m := numberRe.FindStringSubmatch(line); m != nil {
		nums, err := parseNumbers(line, m[2], m[3], m[4])
		if err != nil {
			return model.Metadata{}, err
		}
		return model.Metadata{
			Name:  m[1],
			Value: model.NumberValue{Value: nums[0], Offset: nums[1], Start: nums[2]},
		}, nil
	}

	if m := stringRe.FindStringSubmatch(line); m != nil {
		nums, err := parseNumbers(line, m[3], m[4])
		if err != nil {
			return model.Metadata{}, err
		}
		return model.Metadata{
			Name:  m[1],
			Value: model.StringValue{Value: m[2], Offset: nums[0], Start: nums[1]},
		}, nil
	}

	return model.Metadata{}, fmt.Errorf("unrecognized metadata line %q: %w", line, model.ErrMalformedInput)
}

func parseNumbers(line string, tokens ...string) ([]float64, error) {
	out := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := parseNumber(tok, line)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseNumber(tok, line string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q in metadata line %q: %w", tok, line, model.ErrMalformedInput)
	}
	return v, nil
}
