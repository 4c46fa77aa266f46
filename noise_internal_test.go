package texforge

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

func TestPerlinTiles(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const period = 5
	for i := 0; i < 200; i++ {
		p := ms2.Vec{X: rng.Float32() * period, Y: rng.Float32() * period}
		v0 := perlin2(p, period)
		vx := perlin2(ms2.Add(p, ms2.Vec{X: period}), period)
		vy := perlin2(ms2.Add(p, ms2.Vec{Y: period}), period)
		if math32.Abs(v0-vx) > 1e-5 || math32.Abs(v0-vy) > 1e-5 {
			t.Fatalf("perlin not periodic at %v: %v %v %v", p, v0, vx, vy)
		}
		if v0 < 0 || v0 > 1 {
			t.Fatalf("perlin out of range at %v: %v", p, v0)
		}
	}
}

func TestWorleyTiles(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	const period = 4
	methods := []CellMethod{CellF1, CellF2, CellDistanceToEdge}
	metrics := []CellMetric{MetricEuclidean, MetricManhattan, MetricChebyshev, MetricMinkowski}
	for i := 0; i < 100; i++ {
		p := ms2.Vec{X: rng.Float32() * period, Y: rng.Float32() * period}
		for _, method := range methods {
			for _, metric := range metrics {
				v0 := Worley2(p, period, metric, 2, method, 1)
				vx := Worley2(ms2.Add(p, ms2.Vec{X: period}), period, metric, 2, method, 1)
				if math32.Abs(v0-vx) > 1e-5 {
					t.Fatalf("worley method %d metric %d not periodic at %v: %v vs %v",
						method, metric, p, v0, vx)
				}
			}
		}
	}
}

func TestWorleyF2AtLeastF1(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 300; i++ {
		p := ms2.Vec{X: rng.Float32() * 4, Y: rng.Float32() * 4}
		f1 := Worley2(p, 4, MetricEuclidean, 2, CellF1, 1)
		f2 := Worley2(p, 4, MetricEuclidean, 2, CellF2, 1)
		if f2 < f1-1e-6 {
			t.Fatalf("F2 %v < F1 %v at %v", f2, f1, p)
		}
	}
}

func TestWorley3Tiles(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	const period = 3
	for i := 0; i < 50; i++ {
		p := ms3.Vec{
			X: rng.Float32() * period,
			Y: rng.Float32() * period,
			Z: rng.Float32() * period,
		}
		v0 := Worley3(p, period, MetricEuclidean, 2, CellF1, 1)
		vz := Worley3(ms3.Add(p, ms3.Vec{Z: period}), period, MetricEuclidean, 2, CellF1, 1)
		if math32.Abs(v0-vz) > 1e-5 {
			t.Fatalf("worley3 not periodic at %v: %v vs %v", p, v0, vz)
		}
	}
}

func TestWorleyRegularGridAtZeroRandomness(t *testing.T) {
	// with randomness 0 every feature point sits on its lattice corner
	v := Worley2(ms2.Vec{X: 1, Y: 2}, 4, MetricEuclidean, 2, CellF1, 0)
	if v > 1e-6 {
		t.Errorf("F1 on a lattice corner with zero randomness = %v, want 0", v)
	}
	// and the farthest point of a cell sees sqrt(1/2)
	v = Worley2(ms2.Vec{X: 1.5, Y: 2.5}, 4, MetricEuclidean, 2, CellF1, 0)
	if math32.Abs(v-math32.Sqrt2*0.5) > 1e-5 {
		t.Errorf("F1 at cell center with zero randomness = %v, want sqrt(2)/2", v)
	}
}

func TestSoftMinBounds(t *testing.T) {
	cases := [][2]float32{{0.2, 0.8}, {0.5, 0.5}, {0, 1}, {0.9, 0.1}}
	for _, c := range cases {
		sm := softmin(c[0], c[1], 16)
		if sm > minf(c[0], c[1])+1e-6 {
			t.Errorf("softmin(%v,%v) = %v above hard min", c[0], c[1], sm)
		}
		sx := softmax(c[0], c[1], 16)
		if sx < maxf(c[0], c[1])-1e-6 {
			t.Errorf("softmax(%v,%v) = %v below hard max", c[0], c[1], sx)
		}
	}
}

func TestFbmFractionalOctaveContinuity(t *testing.T) {
	p := ms2.Vec{X: 1.3, Y: 2.7}
	lo := fbm2(p, 4, 2.999, 0.5)
	hi := fbm2(p, 4, 3.001, 0.5)
	if math32.Abs(lo-hi) > 1e-2 {
		t.Errorf("fbm discontinuous across octave count: %v vs %v", lo, hi)
	}
}
