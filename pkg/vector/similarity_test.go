package vector_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Sakibyash/infinoz-bot1/pkg/vector"
)

var _ = Describe("CosineSimilarity", func() {
	It("is 1 for parallel vectors", func() {
		Expect(vector.CosineSimilarity([]float32{1, 2}, []float32{2, 4})).To(BeNumerically("~", 1.0, 1e-6))
	})

	It("is 0 for orthogonal vectors", func() {
		Expect(vector.CosineSimilarity([]float32{1, 0}, []float32{0, 1})).To(BeNumerically("~", 0, 1e-6))
	})

	It("is 0 for mismatched or zero vectors", func() {
		Expect(vector.CosineSimilarity([]float32{1}, []float32{1, 0})).To(BeZero())
		Expect(vector.CosineSimilarity([]float32{0, 0}, []float32{1, 0})).To(BeZero())
	})
})

var _ = Describe("Filter", func() {
	It("matches everything when unscoped", func() {
		Expect(vector.Filter{}.Matches(vector.Document{UserID: "x"})).To(BeTrue())
	})

	It("matches only the scoped user", func() {
		f := vector.Filter{UserID: "alice"}
		Expect(f.Matches(vector.Document{UserID: "alice"})).To(BeTrue())
		Expect(f.Matches(vector.Document{UserID: "bob"})).To(BeFalse())
	})
})
