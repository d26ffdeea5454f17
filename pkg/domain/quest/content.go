package quest

// HintContent resolves the text a hint shows to the player.
type HintContent interface {
	Name() string
	Description() string
}

// StaticContent is HintContent with fixed, already resolved strings.
type StaticContent struct {
	Title string
	Body  string
}

// Name implements HintContent.
func (c StaticContent) Name() string { return c.Title }

// Description implements HintContent.
func (c StaticContent) Description() string { return c.Body }
