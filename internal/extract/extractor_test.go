package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescope/codescope/internal/storage"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	file := &ParsedFile{
		Language: "python",
		Module:   "billing",
		Decls: []*ParsedNode{
			{
				Form:      FormClass,
				Name:      "Invoice",
				Signature: "class Invoice:",
				Doc:       "Represents a customer invoice.",
				StartLine: 1,
				EndLine:   30,
				StartByte: 0,
				EndByte:   600,
				Children: []*ParsedNode{
					{
						Form:      FormMethod,
						Name:      "total",
						Signature: "def total(self, tax_rate):",
						StartLine: 10,
						EndLine:   18,
						StartByte: 150,
						EndByte:   400,
						Params:    []Param{{Name: "tax_rate", Type: ""}},
						Calls:     []CallSite{{Callee: "round", Line: 17}},
					},
				},
			},
			{
				Form:      FormImport,
				Name:      "decimal",
				Signature: "import decimal",
				StartLine: 32,
				EndLine:   32,
			},
		},
	}

	res, err := Extract("cb-1", "billing/invoice.py", file)
	require.NoError(t, err)

	t.Run("entities carry normalized kinds and qualified names", func(t *testing.T) {
		require.Len(t, res.Entities, 3)

		invoice := res.Entities[0]
		assert.Equal(t, storage.KindClass, invoice.Kind)
		assert.Equal(t, "billing.Invoice", invoice.QualifiedName)
		assert.Equal(t, storage.EntityID("billing/invoice.py", "Invoice", 1), invoice.ID)
		assert.Equal(t, "class Invoice:", invoice.Signature)

		total := res.Entities[1]
		assert.Equal(t, storage.KindMethod, total.Kind)
		require.Len(t, total.Parameters, 1)
		assert.Equal(t, "tax_rate", total.Parameters[0].Name)

		assert.Equal(t, storage.KindImport, res.Entities[2].Kind)
	})

	t.Run("spans map entity ids to byte ranges", func(t *testing.T) {
		require.Len(t, res.Spans, 3)
		assert.Equal(t, res.Entities[0].ID, res.Spans[0].EntityID)
		assert.Equal(t, 0, res.Spans[0].StartByte)
		assert.Equal(t, 600, res.Spans[0].EndByte)
	})

	t.Run("static edges cover contains, calls and imports", func(t *testing.T) {
		var kinds []storage.RelationshipKind
		for _, r := range res.Relationships {
			kinds = append(kinds, r.Kind)
		}
		assert.ElementsMatch(t,
			[]storage.RelationshipKind{storage.RelContains, storage.RelCalls, storage.RelImports},
			kinds)

		for _, r := range res.Relationships {
			if r.Kind == storage.RelCalls {
				assert.Equal(t, UnresolvedID("round"), r.ToID)
				assert.Equal(t, 17, r.Line)
				assert.InDelta(t, 0.9, r.Confidence, 1e-9)
			}
			if r.Kind == storage.RelContains {
				assert.Equal(t, res.Entities[0].ID, r.FromID)
				assert.Equal(t, res.Entities[1].ID, r.ToID)
				assert.Equal(t, 1.0, r.Confidence)
			}
		}
	})
}

func TestExtractMalformedTree(t *testing.T) {
	t.Parallel()

	t.Run("nil tree", func(t *testing.T) {
		_, err := Extract("cb-1", "broken.py", nil)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "broken.py", parseErr.FilePath)
	})

	t.Run("error tree", func(t *testing.T) {
		_, err := Extract("cb-1", "broken.py", &ParsedFile{Language: "python", Malformed: true})
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
	})

	t.Run("inverted line span", func(t *testing.T) {
		file := &ParsedFile{
			Language: "python",
			Decls: []*ParsedNode{
				{Form: FormFunction, Name: "bad", StartLine: 10, EndLine: 3},
			},
		}
		_, err := Extract("cb-1", "broken.py", file)
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
	})
}

func TestExtractSkipsAnonymousDecls(t *testing.T) {
	t.Parallel()

	file := &ParsedFile{
		Language: "typescript",
		Decls: []*ParsedNode{
			{Form: FormArrowFunction, Name: "", StartLine: 1, EndLine: 1},
			{Form: FormFunction, Name: "named", StartLine: 3, EndLine: 5},
		},
	}

	res, err := Extract("cb-1", "app.ts", file)
	require.NoError(t, err)
	require.Len(t, res.Entities, 1)
	assert.Equal(t, "named", res.Entities[0].Name)
}
