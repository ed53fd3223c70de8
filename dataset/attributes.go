// Package dataset loads annotated spectrogram images for training: a
// header-keyed CSV mapping image files to their synthesizer attributes,
// PNG decoding with resize and normalization, a seeded train/test split,
// and a mini-batch loader with bounded concurrent decoding.
package dataset

// NumAttributes is the length of the conditioning vector attached to every
// spectrogram: note pitch, velocity, instrument source, instrument family,
// and ten sonic-quality flags.
const NumAttributes = 14

// AttributeNames lists the annotation columns in conditioning-vector
// order. The loader fills label vectors in exactly this order, so trained
// models and samplers agree on which slot means what.
var AttributeNames = [NumAttributes]string{
	"pitch",
	"velocity",
	"source",
	"family",
	"quality_bright",
	"quality_dark",
	"quality_distortion",
	"quality_fast_decay",
	"quality_long_release",
	"quality_multiphonic",
	"quality_nonlinear_env",
	"quality_percussive",
	"quality_reverb",
	"quality_tempo_synced",
}
