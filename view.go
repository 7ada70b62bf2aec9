package asyncimage

// View is something that displays one image at a time and may be recycled
// for a different URL while a load is in flight.
type View interface {
	SetTag(tag string)
	Tag() string
	ShowBitmap(bmp *Bitmap)
	ShowPlaceholder(resID int)
}

// LoadForView shows placeholder immediately, then the image at url once it
// arrives. If the view has been retargeted at another URL in the meantime,
// or the load failed, the placeholder is shown instead.
func (l *Loader) LoadForView(view View, url string, placeholder int) {
	view.SetTag(url)
	view.ShowPlaceholder(placeholder)
	l.Load(url, func(loaded string, bmp *Bitmap) {
		if bmp != nil && loaded == view.Tag() {
			view.ShowBitmap(bmp)
			return
		}
		view.ShowPlaceholder(placeholder)
	})
}
