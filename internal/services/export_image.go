package services

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/mapgroups/server/internal/models"
)

// Layout of the rendered export image: a map panel on the left and the
// numbered location list on the right.
const (
	mapPanelWidth  = 800
	mapPanelHeight = 600
	listPanelWidth = 400
	listHeader     = 44
	listRowHeight  = 22
	mapMargin      = 40
	markerRadius   = 10
	glyphWidth     = 7
	routeWidth     = 2
)

var (
	mapBackground  = color.NRGBA{R: 0xE9, G: 0xEF, B: 0xF5, A: 0xFF}
	gridColor      = color.NRGBA{R: 0xD3, G: 0xDC, B: 0xE6, A: 0xFF}
	routeColor     = color.NRGBA{R: 0x8A, G: 0x94, B: 0xA0, A: 0xFF}
	textColor      = color.NRGBA{R: 0x20, G: 0x24, B: 0x28, A: 0xFF}
	separatorColor = color.NRGBA{R: 0xDD, G: 0xDD, B: 0xDD, A: 0xFF}
)

// WritePNG renders the group's map and ordered list as one PNG image
func WritePNG(w io.Writer, group *models.Group) error {
	img := RenderImage(group)
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// RenderImage draws the combined map and list image
func RenderImage(group *models.Group) *image.NRGBA {
	height := listHeader + len(group.Locations)*listRowHeight + listRowHeight
	if height < mapPanelHeight {
		height = mapPanelHeight
	}

	canvas := imaging.New(mapPanelWidth+listPanelWidth, height, color.White)
	canvas = imaging.Paste(canvas, renderMapPanel(group.Locations), image.Pt(0, 0))
	renderListPanel(canvas, group, mapPanelWidth)
	return canvas
}

// projection maps coordinates onto the map panel with an equirectangular
// projection fitted to the locations' bounds.
type projection struct {
	minLng, maxLat   float64
	lngScale, scale  float64
	offsetX, offsetY float64
}

func newProjection(locations []*models.Location) projection {
	minLat, maxLat := locations[0].Latitude, locations[0].Latitude
	minLng, maxLng := locations[0].Longitude, locations[0].Longitude
	for _, loc := range locations[1:] {
		minLat = math.Min(minLat, loc.Latitude)
		maxLat = math.Max(maxLat, loc.Latitude)
		minLng = math.Min(minLng, loc.Longitude)
		maxLng = math.Max(maxLng, loc.Longitude)
	}

	// Shrink longitudes by the cosine of the middle latitude so shapes are not stretched
	lngScale := math.Max(math.Cos((minLat+maxLat)/2*math.Pi/180), 0.1)

	spanX := math.Max((maxLng-minLng)*lngScale, 0.01)
	spanY := math.Max(maxLat-minLat, 0.01)
	scale := math.Min(
		float64(mapPanelWidth-2*mapMargin)/spanX,
		float64(mapPanelHeight-2*mapMargin)/spanY,
	)

	// Center the used area; a single point sits in the middle
	usedX := (maxLng - minLng) * lngScale * scale
	usedY := (maxLat - minLat) * scale
	return projection{
		minLng:   minLng,
		maxLat:   maxLat,
		lngScale: lngScale,
		scale:    scale,
		offsetX:  (float64(mapPanelWidth) - usedX) / 2,
		offsetY:  (float64(mapPanelHeight) - usedY) / 2,
	}
}

func (p projection) point(loc *models.Location) image.Point {
	x := p.offsetX + (loc.Longitude-p.minLng)*p.lngScale*p.scale
	y := p.offsetY + (p.maxLat-loc.Latitude)*p.scale
	return image.Pt(int(math.Round(x)), int(math.Round(y)))
}

func renderMapPanel(locations []*models.Location) *image.NRGBA {
	panel := imaging.New(mapPanelWidth, mapPanelHeight, mapBackground)

	for x := 0; x < mapPanelWidth; x += 50 {
		strokeLine(panel, pt(x, 0), pt(x, mapPanelHeight-1), 1, gridColor)
	}
	for y := 0; y < mapPanelHeight; y += 50 {
		strokeLine(panel, pt(0, y), pt(mapPanelWidth-1, y), 1, gridColor)
	}

	if len(locations) == 0 {
		msg := "No locations"
		drawText(panel, msg, (mapPanelWidth-len(msg)*glyphWidth)/2, mapPanelHeight/2, textColor)
		return panel
	}

	proj := newProjection(locations)
	points := make([]image.Point, len(locations))
	for i, loc := range locations {
		points[i] = proj.point(loc)
	}

	for i := 1; i < len(points); i++ {
		strokeLine(panel, pt(points[i-1].X, points[i-1].Y), pt(points[i].X, points[i].Y), routeWidth, routeColor)
	}

	// Draw in reverse so the first marker ends up on top
	for i := len(points) - 1; i >= 0; i-- {
		drawMarker(panel, points[i], parseColor(locations[i].Color), strconv.Itoa(i+1))
	}
	return panel
}

func renderListPanel(canvas *image.NRGBA, group *models.Group, left int) {
	strokeLine(canvas, pt(left, 0), pt(left, canvas.Bounds().Dy()-1), 1, separatorColor)

	maxChars := (listPanelWidth - 24) / glyphWidth
	drawText(canvas, ellipsize(group.Name, maxChars), left+16, 26, textColor)
	strokeLine(canvas, pt(left+12, listHeader-8), pt(left+listPanelWidth-12, listHeader-8), 1, separatorColor)

	maxChars = (listPanelWidth - 60) / glyphWidth
	for i, loc := range group.Locations {
		baseline := listHeader + i*listRowHeight + 14
		fillCircle(canvas, pt(left+24, baseline-4), 6, parseColor(loc.Color))
		label := fmt.Sprintf("%d. %s", i+1, loc.Title)
		drawText(canvas, ellipsize(label, maxChars), left+38, baseline, textColor)
	}
}

func drawMarker(img *image.NRGBA, center image.Point, c color.NRGBA, label string) {
	fillCircle(img, pt(center.X, center.Y), markerRadius+2, color.White)
	fillCircle(img, pt(center.X, center.Y), markerRadius, c)
	drawText(img, label, center.X-len(label)*glyphWidth/2, center.Y+5, labelColor(c))
}

// vec is a point in image space. Pixel (x, y) covers the unit square whose
// top left corner is (x, y).
type vec struct{ x, y float32 }

// pt returns the center of pixel (x, y)
func pt(x, y int) vec {
	return vec{float32(x) + 0.5, float32(y) + 0.5}
}

// circleKappa places cubic Bézier control points so four curves approximate a circle
const circleKappa = 0.5522848

func fillCircle(img *image.NRGBA, center vec, radius float32, c color.Color) {
	r, k := radius, radius*circleKappa
	fillPath(img, c, boundsOf(vec{center.x - r, center.y - r}, vec{center.x + r, center.y + r}),
		func(z *vector.Rasterizer, o vec) {
			x, y := center.x-o.x, center.y-o.y
			z.MoveTo(x+r, y)
			z.CubeTo(x+r, y+k, x+k, y+r, x, y+r)
			z.CubeTo(x-k, y+r, x-r, y+k, x-r, y)
			z.CubeTo(x-r, y-k, x-k, y-r, x, y-r)
			z.CubeTo(x+k, y-r, x+r, y-k, x+r, y)
			z.ClosePath()
		})
}

// strokeLine draws the segment from a to b as a quad of the given width
func strokeLine(img *image.NRGBA, a, b vec, width float32, c color.Color) {
	dx, dy := b.x-a.x, b.y-a.y
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	// Half width normal, plus half a pixel along the segment so ends reach the end pixels
	nx, ny := -dy/length*width/2, dx/length*width/2
	ex, ey := dx/length/2, dy/length/2
	a = vec{a.x - ex, a.y - ey}
	b = vec{b.x + ex, b.y + ey}

	corners := []vec{
		{a.x + nx, a.y + ny},
		{b.x + nx, b.y + ny},
		{b.x - nx, b.y - ny},
		{a.x - nx, a.y - ny},
	}
	fillPath(img, c, boundsOf(corners...), func(z *vector.Rasterizer, o vec) {
		z.MoveTo(corners[0].x-o.x, corners[0].y-o.y)
		for _, p := range corners[1:] {
			z.LineTo(p.x-o.x, p.y-o.y)
		}
		z.ClosePath()
	})
}

// fillPath rasterizes a path restricted to area and composites c over img.
// The path is built relative to the origin o of area.
func fillPath(img *image.NRGBA, c color.Color, area image.Rectangle, path func(z *vector.Rasterizer, o vec)) {
	area = area.Intersect(img.Bounds())
	if area.Empty() {
		return
	}
	z := vector.NewRasterizer(area.Dx(), area.Dy())
	path(z, vec{float32(area.Min.X), float32(area.Min.Y)})
	z.Draw(img, area, image.NewUniform(c), image.Point{})
}

func boundsOf(points ...vec) image.Rectangle {
	minX, minY := points[0].x, points[0].y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX, maxX = min(minX, p.x), max(maxX, p.x)
		minY, maxY = min(minY, p.y), max(maxY, p.y)
	}
	return image.Rect(
		int(math.Floor(float64(minX))), int(math.Floor(float64(minY))),
		int(math.Ceil(float64(maxX))), int(math.Ceil(float64(maxY))),
	)
}

func drawText(img *image.NRGBA, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func ellipsize(s string, max int) string {
	r := []rune(s)
	if len(r) <= max || max < 4 {
		return s
	}
	return string(r[:max-3]) + "..."
}

// parseColor converts #RRGGBB to a color, falling back to the default marker color
func parseColor(hex string) color.NRGBA {
	if !models.IsValidColor(hex) {
		hex = models.DefaultLocationColor
	}
	v, _ := strconv.ParseUint(hex[1:], 16, 32)
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
}

// labelColor picks black or white text for readability on c
func labelColor(c color.NRGBA) color.Color {
	luminance := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
	if luminance > 160 {
		return color.Black
	}
	return color.White
}
