package campaign

import "context"

type Overlays struct {
	res *Resolver
}

func NewOverlays(res *Resolver) *Overlays {
	return &Overlays{res: res}
}

// Dismiss clicks the first visible dismissal control. It reports whether anything was clicked.
func (o *Overlays) Dismiss(ctx context.Context) bool {
	els, err := o.res.Resolve(ctx, DismissOverlay)
	if err != nil {
		return false
	}
	return els[0].Click(ctx) == nil
}
