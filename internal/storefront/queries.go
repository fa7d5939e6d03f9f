package storefront

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// document is a parsed GraphQL operation ready to send. Parsing happens once
// at package init so a malformed document fails fast, and the operation name
// extracted from the AST keys events and traces.
type document struct {
	src string
	op  string
}

func mustDocument(src string) document {
	doc, err := parser.ParseQuery(&ast.Source{Input: src})
	if err != nil {
		panic(fmt.Sprintf("storefront: bad query document: %v", err))
	}
	if len(doc.Operations) != 1 || doc.Operations[0].Name == "" {
		panic("storefront: query documents must contain exactly one named operation")
	}
	return document{src: src, op: doc.Operations[0].Name}
}

// Documents returns every operation this package can send, keyed by
// operation name. The check-queries command re-parses them for CI.
func Documents() map[string]string {
	return map[string]string{
		productDoc.op:            productDoc.src,
		productVariantsDoc.op:    productVariantsDoc.src,
		recommendedDoc.op:        recommendedDoc.src,
		featuredCollectionDoc.op: featuredCollectionDoc.src,
		cartCreateDoc.op:         cartCreateDoc.src,
		cartLinesAddDoc.op:       cartLinesAddDoc.src,
	}
}

const variantFragment = `
fragment ProductVariant on ProductVariant {
  id
  title
  sku
  availableForSale
  selectedOptions {
    name
    value
  }
  price {
    amount
    currencyCode
  }
  compareAtPrice {
    amount
    currencyCode
  }
  image {
    id
    url
    altText
    width
    height
  }
}
`

// productDoc is the critical-path query: product by handle with the
// provider's own server-side match of the selection (selectedVariant) and a
// single-variant first page for the sentinel/redirect decision.
var productDoc = mustDocument(`
query Product($handle: String!, $selectedOptions: [SelectedOptionInput!]!) {
  product(handle: $handle) {
    id
    handle
    title
    vendor
    description
    descriptionHtml
    options {
      name
      values
    }
    selectedVariant: variantBySelectedOptions(selectedOptions: $selectedOptions, ignoreUnknownOptions: true) {
      ...ProductVariant
    }
    variants(first: 1) {
      nodes {
        ...ProductVariant
      }
    }
  }
}
` + variantFragment)

// productVariantsDoc fetches the full variant page for option availability.
// Deferred: there might be a lot of variants, so the page never waits on it.
var productVariantsDoc = mustDocument(`
query ProductVariants($handle: String!) {
  product(handle: $handle) {
    variants(first: 250) {
      nodes {
        ...ProductVariant
      }
    }
  }
}
` + variantFragment)

var recommendedDoc = mustDocument(`
query RecommendedProducts {
  products(first: 4, sortKey: UPDATED_AT, reverse: true) {
    nodes {
      id
      handle
      title
      priceRange {
        minVariantPrice {
          amount
          currencyCode
        }
      }
      images(first: 1) {
        nodes {
          id
          url
          altText
          width
          height
        }
      }
    }
  }
}
`)

var featuredCollectionDoc = mustDocument(`
query FeaturedCollection {
  collections(first: 1, sortKey: UPDATED_AT) {
    nodes {
      id
      handle
      title
      image {
        id
        url
        altText
        width
        height
      }
    }
  }
}
`)

const cartFragment = `
fragment CartState on Cart {
  id
  totalQuantity
  lines(first: 100) {
    nodes {
      id
      quantity
      merchandise {
        ... on ProductVariant {
          id
        }
      }
    }
  }
}
`

var cartCreateDoc = mustDocument(`
mutation CartCreate($lines: [CartLineInput!]!) {
  cartCreate(input: {lines: $lines}) {
    cart {
      ...CartState
    }
    userErrors {
      field
      message
    }
  }
}
` + cartFragment)

var cartLinesAddDoc = mustDocument(`
mutation CartLinesAdd($cartId: ID!, $lines: [CartLineInput!]!) {
  cartLinesAdd(cartId: $cartId, lines: $lines) {
    cart {
      ...CartState
    }
    userErrors {
      field
      message
    }
  }
}
` + cartFragment)
