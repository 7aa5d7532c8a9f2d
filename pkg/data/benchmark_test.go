package data

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/pashagolub/escelo/pkg/elo"
)

var benchmarkSizes = []int{10, 26, 40}

func generateBenchmarkYAML(b *testing.B, n int) []byte {
	b.Helper()
	content, err := yaml.Marshal(datasetFile{
		Year:   2025,
		Stages: map[string][]Record{string(StageFinal): createTestRecords(n)},
	})
	if err != nil {
		b.Fatal(err)
	}
	return content
}

// BenchmarkParseDatasets measures decoding and validation of a dataset file
func BenchmarkParseDatasets(b *testing.B) {
	for _, n := range benchmarkSizes {
		b.Run(fmt.Sprintf("entries_%d", n), func(b *testing.B) {
			content := generateBenchmarkYAML(b, n)

			b.ReportAllocs()
			for b.Loop() {
				datasets, err := ParseDatasets(bytes.NewReader(content))
				if err != nil {
					b.Fatal(err)
				}
				if len(datasets[0].Records) != n {
					b.Fatalf("expected %d records, got %d", n, len(datasets[0].Records))
				}
			}
		})
	}
}

// BenchmarkSessionRun measures a complete session from load to final ranking
func BenchmarkSessionRun(b *testing.B) {
	for _, n := range benchmarkSizes {
		b.Run(fmt.Sprintf("entries_%d", n), func(b *testing.B) {
			dataset := createTestDataset(n)
			engine := elo.MustNewEngine(elo.DefaultConfig())
			selector, err := elo.NewSelector(engine, elo.DefaultSelectorConfig(), rand.New(rand.NewPCG(1, 2)))
			if err != nil {
				b.Fatal(err)
			}
			session, err := NewSession(WithEngine(engine), WithSelector(selector))
			if err != nil {
				b.Fatal(err)
			}

			b.ReportAllocs()
			for b.Loop() {
				if err := session.Load(dataset); err != nil {
					b.Fatal(err)
				}
				for !session.IsComplete() {
					pair, _ := session.CurrentPair()
					if err := session.RecordChoice(pair.A.ID, pair.B.ID); err != nil {
						b.Fatal(err)
					}
				}
				if got := len(session.RankedEntries()); got != n {
					b.Fatalf("expected %d ranked entries, got %d", n, got)
				}
			}
		})
	}
}
