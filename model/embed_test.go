package model

import "testing"

// TestTimeEmbeddingShape verifies layout and bounds
func TestTimeEmbeddingShape(t *testing.T) {
	emb := TimeEmbedding(500, 32)
	if len(emb) != 32 {
		t.Fatalf("Expected 32 features, got %d", len(emb))
	}
	for i, v := range emb {
		if v < -1 || v > 1 {
			t.Errorf("Feature %d out of [-1, 1]: %f", i, v)
		}
	}
}

// TestTimeEmbeddingZero verifies t=0 encodes as all sines 0, cosines 1
func TestTimeEmbeddingZero(t *testing.T) {
	emb := TimeEmbedding(0, 8)
	for i := 0; i < 4; i++ {
		if emb[i] != 0 {
			t.Errorf("sin slot %d at t=0: expected 0, got %f", i, emb[i])
		}
		if emb[4+i] != 1 {
			t.Errorf("cos slot %d at t=0: expected 1, got %f", i, emb[4+i])
		}
	}
}

// TestTimeEmbeddingDistinguishesTimesteps verifies nearby timesteps map to
// different codes
func TestTimeEmbeddingDistinguishesTimesteps(t *testing.T) {
	a := TimeEmbedding(100, 16)
	b := TimeEmbedding(101, 16)

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("Adjacent timesteps produced identical embeddings")
	}
}
