package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescope/codescope/internal/extract"
)

const pythonSample = `import os
from decimal import Decimal

class Cart:
    def __init__(self):
        self.items = []

    def total(self, tax_rate):
        return compute_tax(sum(self.items), tax_rate)

def compute_tax(amount, rate):
    return amount * rate
`

func TestPythonParser(t *testing.T) {
	t.Parallel()

	p := newTreeSitterParser(pythonSpec)
	file, err := p.ParseSource(context.Background(), "cart.py", []byte(pythonSample))
	require.NoError(t, err)
	require.False(t, file.Malformed)

	t.Run("imports", func(t *testing.T) {
		imp := declByName(file, "os")
		require.NotNil(t, imp)
		assert.Equal(t, extract.FormImport, imp.Form)

		from := declByName(file, "decimal")
		require.NotNil(t, from)
		assert.Equal(t, extract.FormImport, from.Form)
	})

	t.Run("class with nested methods", func(t *testing.T) {
		cart := declByName(file, "Cart")
		require.NotNil(t, cart)
		assert.Equal(t, extract.FormClass, cart.Form)
		require.Len(t, cart.Children, 2)

		ctor := cart.Children[0]
		assert.Equal(t, "__init__", ctor.Name)
		assert.Equal(t, extract.FormConstructor, ctor.Form)

		total := cart.Children[1]
		assert.Equal(t, "total", total.Name)
		assert.Equal(t, extract.FormMethod, total.Form)
		assert.Equal(t, "    def total(self, tax_rate):", total.Signature)
	})

	t.Run("top-level function records calls", func(t *testing.T) {
		fn := declByName(file, "compute_tax")
		require.NotNil(t, fn)
		assert.Equal(t, extract.FormFunction, fn.Form)

		var callees []string
		for _, c := range fn.Calls {
			callees = append(callees, c.Callee)
		}
		assert.Empty(t, callees) // compute_tax's body contains no calls
	})

	t.Run("method call sites", func(t *testing.T) {
		cart := declByName(file, "Cart")
		require.NotNil(t, cart)
		total := cart.Children[1]

		var callees []string
		for _, c := range total.Calls {
			callees = append(callees, c.Callee)
		}
		assert.Contains(t, callees, "compute_tax")
		assert.Contains(t, callees, "sum")
	})
}

func TestPythonParserMalformed(t *testing.T) {
	t.Parallel()

	p := newTreeSitterParser(pythonSpec)
	file, err := p.ParseSource(context.Background(), "broken.py", []byte("def broken(:\n"))
	require.NoError(t, err)
	assert.True(t, file.Malformed)
}

const typescriptSample = `import { total } from "./cart";

export interface Priced {
    price: number;
}

export class Checkout {
    constructor(private items: Priced[]) {}

    grandTotal(): number {
        return total(this.items);
    }
}

export function formatPrice(value: number): string {
    return value.toFixed(2);
}
`

func TestTypeScriptParser(t *testing.T) {
	t.Parallel()

	p := newTreeSitterParser(typescriptSpec)
	file, err := p.ParseSource(context.Background(), "checkout.ts", []byte(typescriptSample))
	require.NoError(t, err)
	require.False(t, file.Malformed)

	iface := declByName(file, "Priced")
	require.NotNil(t, iface)
	assert.Equal(t, extract.FormInterface, iface.Form)

	class := declByName(file, "Checkout")
	require.NotNil(t, class)
	assert.Equal(t, extract.FormClass, class.Form)

	var childNames []string
	for _, c := range class.Children {
		childNames = append(childNames, c.Name)
	}
	assert.Contains(t, childNames, "constructor")
	assert.Contains(t, childNames, "grandTotal")

	fn := declByName(file, "formatPrice")
	require.NotNil(t, fn)
	assert.Equal(t, extract.FormFunction, fn.Form)

	imp := declByName(file, "./cart")
	require.NotNil(t, imp)
	assert.Equal(t, extract.FormImport, imp.Form)
}

func TestSplitTopLevel(t *testing.T) {
	t.Parallel()

	parts := splitTopLevel("a: Map<String, Integer>, b: int", ',')
	require.Len(t, parts, 2)
	assert.Equal(t, "a: Map<String, Integer>", parts[0])
	assert.Equal(t, " b: int", parts[1])
}

func TestImportedModule(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "./cart", importedModule(`import { total } from "./cart";`))
	assert.Equal(t, "os", importedModule("import os"))
	assert.Equal(t, "decimal", importedModule("from decimal import Decimal"))
	assert.Equal(t, "java.util.List", importedModule("import java.util.List;"))
}
