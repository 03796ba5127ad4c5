// Package suggest provides the trigger-character autocomplete sources
// for the rich-text input: mentions on '@' and emojis on ':'. Each
// provider resolves items for the query at the cursor and publishes
// them to a floating list view owned by the UI.
package suggest

// Props is the payload published to the suggestion list view.
type Props struct {
	Items []any
	Query string
}

// ListView is the floating list component. Keyboard navigation is
// delegated to it; the providers only decide visibility and content.
type ListView interface {
	Show(props Props)
	Hide()
	HandleKeyDown(key string) bool
}

// ItemsFunc resolves the suggestion items for a query.
type ItemsFunc func(query string) []any

// Provider drives one trigger character.
type Provider struct {
	Char  rune
	items ItemsFunc
	view  ListView
	open  bool
}

func NewProvider(char rune, items ItemsFunc, view ListView) *Provider {
	return &Provider{Char: char, items: items, view: view}
}

// Update resolves items for the current query and publishes them.
func (p *Provider) Update(query string) {
	p.open = true
	p.view.Show(Props{Items: p.items(query), Query: query})
}

// Exit hides the list when the trigger context is left.
func (p *Provider) Exit() {
	if !p.open {
		return
	}
	p.open = false
	p.view.Hide()
}

// KeyDown forwards navigation keys to the list view. Escape always
// dismisses and is consumed here.
func (p *Provider) KeyDown(key string) bool {
	if !p.open {
		return false
	}
	if key == "Escape" {
		p.Exit()
		return true
	}
	return p.view.HandleKeyDown(key)
}
