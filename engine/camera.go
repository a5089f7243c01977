package engine

// Camera keeps the view centered on a world point.
type Camera struct {
	PosX float64
	PosY float64

	viewW float64
	viewH float64
	// world bounds in pixels (0 means unbounded)
	worldW float64
	worldH float64
	toric  bool
}

func NewCamera(viewW, viewH int) Camera {
	return Camera{
		PosX:  float64(viewW) / 2.0,
		PosY:  float64(viewH) / 2.0,
		viewW: float64(viewW),
		viewH: float64(viewH),
	}
}

// SetWorld sets the world pixel dimensions the camera is kept inside. Toric
// worlds wrap instead of clamping.
func (c *Camera) SetWorld(w, h float64, toric bool) {
	c.worldW = w
	c.worldH = h
	c.toric = toric
}

// ViewTopLeft returns the world-space top-left of the current view.
func (c *Camera) ViewTopLeft() (float64, float64) {
	return c.PosX - c.viewW/2.0, c.PosY - c.viewH/2.0
}

func (c *Camera) ViewSize() (float64, float64) {
	return c.viewW, c.viewH
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Update centers the camera on the target world coordinate.
func (c *Camera) Update(targetX, targetY float64) {
	c.PosX = targetX
	c.PosY = targetY
	if c.toric {
		return
	}

	halfW := c.viewW / 2.0
	halfH := c.viewH / 2.0
	if c.worldW > 0 {
		minX := halfW
		maxX := c.worldW - halfW
		if maxX < minX {
			// world smaller than view: center on world
			c.PosX = c.worldW / 2.0
		} else {
			c.PosX = clamp(c.PosX, minX, maxX)
		}
	}

	if c.worldH > 0 {
		minY := halfH
		maxY := c.worldH - halfH
		if maxY < minY {
			c.PosY = c.worldH / 2.0
		} else {
			c.PosY = clamp(c.PosY, minY, maxY)
		}
	}
}
