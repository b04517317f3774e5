package shopify

// ShopIDQuery returns the GID of the shop the token belongs to.
const ShopIDQuery = `
query shopId {
  shop {
    id
  }
}
`

// ProductVariantQuery fetches what the merge group editor displays for a variant.
const ProductVariantQuery = `
query productVariant($id: ID!) {
  productVariant(id: $id) {
    id
    title
    image {
      url
    }
    product {
      id
      title
      featuredMedia {
        preview {
          image {
            url
          }
        }
      }
    }
  }
}
`

// MetafieldQuery reads back a shop metafield value.
const MetafieldQuery = `
query shopMetafield($namespace: String!, $key: String!) {
  shop {
    metafield(namespace: $namespace, key: $key) {
      value
      type
    }
  }
}
`
