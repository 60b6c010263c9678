package convert

import (
	"fmt"

	"github.com/Faultbox/wg3d/pkg/formats"
	"github.com/Faultbox/wg3d/pkg/math"
)

// ScaleULPs is the tolerance for a scale keyframe to count as uniform.
const ScaleULPs = 4

// Interpolation is the curve rule between keyframes.
type Interpolation uint8

const (
	InterpolationLinear Interpolation = iota
	InterpolationStep
	InterpolationCubicSpline
	InterpolationCatmullRomSpline
)

// ParseInterpolation converts a glTF interpolation name. An empty name is
// LINEAR.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "", formats.InterpolationLinear:
		return InterpolationLinear, nil
	case formats.InterpolationStep:
		return InterpolationStep, nil
	case formats.InterpolationCubicSpline:
		return InterpolationCubicSpline, nil
	case formats.InterpolationCatmullRom:
		return InterpolationCatmullRomSpline, nil
	default:
		return 0, fmt.Errorf("%w: interpolation %q", ErrOther, s)
	}
}

// String returns a human-readable mode name.
func (i Interpolation) String() string {
	switch i {
	case InterpolationLinear:
		return "Linear"
	case InterpolationStep:
		return "Step"
	case InterpolationCubicSpline:
		return "CubicSpline"
	case InterpolationCatmullRomSpline:
		return "CatmullRomSpline"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(i))
	}
}

// IsSpline reports whether the mode carries boundary tangent stubs.
func (i Interpolation) IsSpline() bool {
	return i == InterpolationCubicSpline || i == InterpolationCatmullRomSpline
}

// Property is the animated node property.
type Property uint8

const (
	PropertyTranslation Property = iota
	PropertyRotation
	PropertyScale
	PropertyWeights
)

// ParseProperty converts a glTF target path.
func ParseProperty(s string) (Property, error) {
	switch s {
	case formats.PathTranslation:
		return PropertyTranslation, nil
	case formats.PathRotation:
		return PropertyRotation, nil
	case formats.PathScale:
		return PropertyScale, nil
	case formats.PathWeights:
		return PropertyWeights, nil
	default:
		return 0, fmt.Errorf("%w: target path %q", ErrOther, s)
	}
}

// String returns the glTF target path.
func (p Property) String() string {
	switch p {
	case PropertyTranslation:
		return formats.PathTranslation
	case PropertyRotation:
		return formats.PathRotation
	case PropertyScale:
		return formats.PathScale
	case PropertyWeights:
		return formats.PathWeights
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(p))
	}
}

// Keyframe is one time/value pair of a channel.
type Keyframe[T any] struct {
	Time  float32
	Value T
}

// Channel is one animated property of one joint. Exactly one of the
// keyframe slices is populated, chosen by Property. For spline modes the
// last two keyframes are the boundary tangent stubs.
type Channel struct {
	Skeleton      int // Index into the model's skeletons
	Joint         uint16
	Property      Property
	Interpolation Interpolation

	Translations []Keyframe[math.Vec3]
	Rotations    []Keyframe[math.Quat]
	Scales       []Keyframe[float32]
	Weights      []Keyframe[[]float32] // One weight per morph target
}

// Len returns the keyframe count, padding included.
func (c *Channel) Len() int {
	switch c.Property {
	case PropertyTranslation:
		return len(c.Translations)
	case PropertyRotation:
		return len(c.Rotations)
	case PropertyScale:
		return len(c.Scales)
	default:
		return len(c.Weights)
	}
}

// Times returns the keyframe timestamps, padding included.
func (c *Channel) Times() []float32 {
	times := make([]float32, 0, c.Len())
	switch c.Property {
	case PropertyTranslation:
		for _, k := range c.Translations {
			times = append(times, k.Time)
		}
	case PropertyRotation:
		for _, k := range c.Rotations {
			times = append(times, k.Time)
		}
	case PropertyScale:
		for _, k := range c.Scales {
			times = append(times, k.Time)
		}
	default:
		for _, k := range c.Weights {
			times = append(times, k.Time)
		}
	}
	return times
}

// JointResolver maps a scene-graph node to a joint index.
type JointResolver interface {
	JointIndex(node int) (uint16, bool)
}

// ChannelSource is a channel as the sampler consumes it.
type ChannelSource struct {
	Node          int
	Property      Property
	Interpolation Interpolation
	Input         *Accessor // Keyframe times
	Output        *Accessor // Keyframe values
}

// ResolveChannel builds the ChannelSource for one channel of anim.
func ResolveChannel(doc *formats.GLTF, anim *formats.GLTFAnimation, channel int) (ChannelSource, error) {
	ch := &anim.Channels[channel]
	if ch.Target.Node == nil {
		return ChannelSource{}, fmt.Errorf("%w: channel %d has no target node", ErrInvalidJoint, channel)
	}
	if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
		return ChannelSource{}, fmt.Errorf("%w: channel %d sampler %d", ErrInvalidReference, channel, ch.Sampler)
	}
	sampler := &anim.Samplers[ch.Sampler]

	prop, err := ParseProperty(ch.Target.Path)
	if err != nil {
		return ChannelSource{}, fmt.Errorf("channel %d: %w", channel, err)
	}
	interp, err := ParseInterpolation(sampler.Interpolation)
	if err != nil {
		return ChannelSource{}, fmt.Errorf("channel %d: %w", channel, err)
	}
	input, err := ResolveAccessor(doc, sampler.Input)
	if err != nil {
		return ChannelSource{}, fmt.Errorf("channel %d input: %w", channel, err)
	}
	output, err := ResolveAccessor(doc, sampler.Output)
	if err != nil {
		return ChannelSource{}, fmt.Errorf("channel %d output: %w", channel, err)
	}

	return ChannelSource{
		Node:          *ch.Target.Node,
		Property:      prop,
		Interpolation: interp,
		Input:         input,
		Output:        output,
	}, nil
}

// PadTimes appends duplicates of the first and last timestamp for spline
// modes. Other modes and empty input are returned unchanged.
func PadTimes(times []float32, interp Interpolation) []float32 {
	if !interp.IsSpline() || len(times) == 0 {
		return times
	}
	padded := make([]float32, len(times), len(times)+2)
	copy(padded, times)
	return append(padded, times[0], times[len(times)-1])
}

// SampleChannel decodes one channel against the joint index space.
func SampleChannel(src ChannelSource, joints JointResolver, buffers BufferSource) (*Channel, error) {
	joint, ok := joints.JointIndex(src.Node)
	if !ok {
		return nil, fmt.Errorf("%w: node %d is not a joint", ErrInvalidJoint, src.Node)
	}

	times, err := ReadScalarF32(src.Input, buffers)
	if err != nil {
		return nil, fmt.Errorf("keyframe times: %w", err)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: channel has no keyframes", ErrCardinalityMismatch)
	}
	for i := 1; i < len(times); i++ {
		if times[i] < times[i-1] {
			return nil, fmt.Errorf("%w: t[%d]=%v after t[%d]=%v", ErrNonMonotonicTimes, i, times[i], i-1, times[i-1])
		}
	}
	keys := len(times)
	times = PadTimes(times, src.Interpolation)

	ch := &Channel{
		Joint:         joint,
		Property:      src.Property,
		Interpolation: src.Interpolation,
	}

	switch src.Property {
	case PropertyTranslation:
		values, err := ReadVec3F32(src.Output, buffers)
		if err != nil {
			return nil, fmt.Errorf("translations: %w", err)
		}
		ch.Translations, err = zipValues(times, keys, src.Interpolation, values, math.V3)
		if err != nil {
			return nil, err
		}

	case PropertyRotation:
		values, err := ReadNormalizedVec4(src.Output, buffers)
		if err != nil {
			return nil, fmt.Errorf("rotations: %w", err)
		}
		ch.Rotations, err = zipValues(times, keys, src.Interpolation, values, math.QuatFromArray)
		if err != nil {
			return nil, err
		}

	case PropertyScale:
		values, err := ReadVec3F32(src.Output, buffers)
		if err != nil {
			return nil, fmt.Errorf("scales: %w", err)
		}
		for i, s := range values {
			if !uniform(math.V3(s), ScaleULPs) {
				return nil, fmt.Errorf("%w: scale value %d is %v", ErrNonUniformScaling, i, s)
			}
		}
		ch.Scales, err = zipValues(times, keys, src.Interpolation, values, func(s [3]float32) float32 { return s[0] })
		if err != nil {
			return nil, err
		}

	case PropertyWeights:
		values, err := ReadNormalizedScalar(src.Output, buffers)
		if err != nil {
			return nil, fmt.Errorf("weights: %w", err)
		}
		groups, err := groupWeights(values, keys, src.Interpolation)
		if err != nil {
			return nil, err
		}
		ch.Weights, err = zipValues(times, keys, src.Interpolation, groups, func(w []float32) []float32 { return w })
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("%w: property %s", ErrOther, src.Property)
	}

	return ch, nil
}

// rawValueCount returns how many output elements a channel with keys real
// keyframes stores per interpolation mode.
func rawValueCount(keys int, interp Interpolation) int {
	switch interp {
	case InterpolationCubicSpline:
		return 3 * keys // in-tangent, value, out-tangent per key
	case InterpolationCatmullRomSpline:
		return keys + 2 // leading and trailing control point
	default:
		return keys
	}
}

// arrangeSpline reorders raw spline output so values line up with the
// padded times: the keyed values, then the in-tangent stub of the first key
// and the out-tangent stub of the last key.
func arrangeSpline[T any](values []T, keys int, interp Interpolation) ([]T, error) {
	if want := rawValueCount(keys, interp); len(values) != want {
		return nil, fmt.Errorf("%w: %d keyframes need %d %s values, got %d",
			ErrCardinalityMismatch, keys, want, interp, len(values))
	}

	switch interp {
	case InterpolationCubicSpline:
		out := make([]T, 0, keys+2)
		for k := 0; k < keys; k++ {
			out = append(out, values[3*k+1])
		}
		return append(out, values[0], values[3*keys-1]), nil

	case InterpolationCatmullRomSpline:
		out := make([]T, 0, keys+2)
		out = append(out, values[1:keys+1]...)
		return append(out, values[0], values[keys+1]), nil

	default:
		return values, nil
	}
}

// zipValues pairs padded times with values index for index. Length
// mismatches fail; nothing is truncated.
func zipValues[R, T any](times []float32, keys int, interp Interpolation, values []R, conv func(R) T) ([]Keyframe[T], error) {
	if interp.IsSpline() {
		var err error
		values, err = arrangeSpline(values, keys, interp)
		if err != nil {
			return nil, err
		}
	}
	if len(values) != len(times) {
		return nil, fmt.Errorf("%w: %d times, %d values", ErrCardinalityMismatch, len(times), len(values))
	}

	out := make([]Keyframe[T], len(times))
	for i := range out {
		out[i] = Keyframe[T]{Time: times[i], Value: conv(values[i])}
	}
	return out, nil
}

// groupWeights splits a flat morph weight stream into one slice per output
// element. The morph target count is implied by the stream length.
func groupWeights(values []float32, keys int, interp Interpolation) ([][]float32, error) {
	elems := rawValueCount(keys, interp)
	if len(values) == 0 || len(values)%elems != 0 {
		return nil, fmt.Errorf("%w: %d weights do not divide into %d keyframe values",
			ErrCardinalityMismatch, len(values), elems)
	}
	width := len(values) / elems

	groups := make([][]float32, elems)
	for i := range groups {
		groups[i] = values[i*width : (i+1)*width : (i+1)*width]
	}
	return groups, nil
}

// Animation is a named set of channels.
type Animation struct {
	Name     string
	Channels []Channel
}

// ConvertAnimations samples every channel of every animation. Channel
// targets are resolved across all skeletons, first match wins.
func ConvertAnimations(doc *formats.GLTF, skeletons Skeletons, src BufferSource) ([]Animation, error) {
	anims := make([]Animation, 0, len(doc.Animations))
	for ai := range doc.Animations {
		gltfAnim := &doc.Animations[ai]
		anim := Animation{Name: gltfAnim.Name, Channels: make([]Channel, 0, len(gltfAnim.Channels))}
		if anim.Name == "" {
			anim.Name = fmt.Sprintf("animation_%d", ai)
		}

		for ci := range gltfAnim.Channels {
			cs, err := ResolveChannel(doc, gltfAnim, ci)
			if err != nil {
				return nil, fmt.Errorf("animation %q: %w", anim.Name, err)
			}
			skel, _, ok := skeletons.Resolve(cs.Node)
			if !ok {
				return nil, fmt.Errorf("animation %q channel %d: %w: node %d is not part of any skeleton",
					anim.Name, ci, ErrInvalidJoint, cs.Node)
			}
			ch, err := SampleChannel(cs, skeletons[skel], src)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d: %w", anim.Name, ci, err)
			}
			ch.Skeleton = skel
			anim.Channels = append(anim.Channels, *ch)
		}

		anims = append(anims, anim)
	}
	return anims, nil
}
