package dataset

import (
	"image"

	"golang.org/x/image/draw"

	"specdiff/tensor"
)

// ImageToTensor converts a decoded image into a normalized [C, H, W]
// tensor, resizing to the target size with bilinear interpolation when
// needed. Channel order is R, G, B, A truncated to opts.Channels; byte
// values map through v/255 then (v-mean)/std.
func ImageToTensor(img image.Image, opts Options) *tensor.Tensor {
	opts = opts.withDefaults()
	size := opts.ImageSize

	b := img.Bounds()
	if b.Dx() != size || b.Dy() != size {
		dst := image.NewNRGBA(image.Rect(0, 0, size, size))
		draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		img = dst
		b = dst.Bounds()
	}

	t := tensor.New(opts.Channels, size, size)
	plane := size * size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			px := [4]float32{
				float32(r>>8) / 255,
				float32(g>>8) / 255,
				float32(bl>>8) / 255,
				float32(a>>8) / 255,
			}
			for c := 0; c < opts.Channels; c++ {
				t.Data[c*plane+y*size+x] = (px[c] - opts.Mean) / opts.Std
			}
		}
	}
	return t
}

// TensorToImage reverses the normalization of a [C, H, W] tensor back into
// an image, clamping to the byte range. Missing channels render opaque
// black so one- and three-channel tensors still produce viewable PNGs.
func TensorToImage(t *tensor.Tensor, mean, std float32) *image.NRGBA {
	channels, h, w := t.Shape[0], t.Shape[1], t.Shape[2]
	plane := h * w

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var px [4]float32
			px[3] = 1 // opaque unless the tensor carries alpha
			for c := 0; c < channels && c < 4; c++ {
				px[c] = t.Data[c*plane+y*w+x]*std + mean
			}
			idx := img.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				img.Pix[idx+c] = clampByte(px[c])
			}
		}
	}
	return img
}

func clampByte(v float32) uint8 {
	s := v * 255
	if s <= 0 {
		return 0
	}
	if s >= 255 {
		return 255
	}
	return uint8(s + 0.5)
}
