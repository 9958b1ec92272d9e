package style

// Visibility controls whether a layer is drawn.
type Visibility int

const (
	Visible Visibility = iota
	Hidden
)

var visibilityTokens = map[Visibility]string{
	Visible: "visible",
	Hidden:  "none",
}

// Token returns the renderer literal for v.
func (v Visibility) Token() string { return token(visibilityTokens, v, Visible) }

// JSON returns the quoted renderer literal for v.
func (v Visibility) JSON() string { return Quote(v.Token()) }

// Anchor positions an icon or label relative to its coordinate.
type Anchor int

const (
	AnchorCenter Anchor = iota
	AnchorLeft
	AnchorRight
	AnchorTop
	AnchorBottom
	AnchorTopLeft
	AnchorTopRight
	AnchorBottomLeft
	AnchorBottomRight
)

var anchorTokens = map[Anchor]string{
	AnchorCenter:      "center",
	AnchorLeft:        "left",
	AnchorRight:       "right",
	AnchorTop:         "top",
	AnchorBottom:      "bottom",
	AnchorTopLeft:     "top-left",
	AnchorTopRight:    "top-right",
	AnchorBottomLeft:  "bottom-left",
	AnchorBottomRight: "bottom-right",
}

func (a Anchor) Token() string { return token(anchorTokens, a, AnchorCenter) }
func (a Anchor) JSON() string  { return Quote(a.Token()) }

// ParseAnchor maps a renderer literal back to an Anchor.
func ParseAnchor(s string) (Anchor, bool) { return parse(anchorTokens, s) }

// LineCap is the shape drawn at the ends of lines.
type LineCap int

const (
	CapButt LineCap = iota
	CapRound
	CapSquare
)

var lineCapTokens = map[LineCap]string{
	CapButt:   "butt",
	CapRound:  "round",
	CapSquare: "square",
}

func (c LineCap) Token() string { return token(lineCapTokens, c, CapButt) }
func (c LineCap) JSON() string  { return Quote(c.Token()) }

// LineJoin is the shape drawn where line segments meet.
type LineJoin int

const (
	JoinMiter LineJoin = iota
	JoinBevel
	JoinRound
)

var lineJoinTokens = map[LineJoin]string{
	JoinMiter: "miter",
	JoinBevel: "bevel",
	JoinRound: "round",
}

func (j LineJoin) Token() string { return token(lineJoinTokens, j, JoinMiter) }
func (j LineJoin) JSON() string  { return Quote(j.Token()) }

// AnimationType selects how the camera moves to a new view.
type AnimationType int

const (
	Jump AnimationType = iota
	Ease
	Fly
)

var animationTokens = map[AnimationType]string{
	Jump: "jump",
	Ease: "ease",
	Fly:  "fly",
}

func (a AnimationType) Token() string { return token(animationTokens, a, Jump) }

// ParseAnimationType maps a renderer literal back to an AnimationType.
func ParseAnimationType(s string) (AnimationType, bool) { return parse(animationTokens, s) }

func token[E comparable](table map[E]string, v, fallback E) string {
	if t, ok := table[v]; ok {
		return t
	}
	return table[fallback]
}

func parse[E comparable](table map[E]string, s string) (E, bool) {
	for k, v := range table {
		if v == s {
			return k, true
		}
	}
	var zero E
	return zero, false
}
