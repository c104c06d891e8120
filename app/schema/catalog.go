// Package schema exposes the catalogue read-only over GraphQL:
//
//	{ products(category: "bags") { id name price image } }
//	{ product(id: 3) { name recommendations { id name } } }
//	{ categories }
package schema

import (
	"context"
	"errors"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/storefront/app/models"
	gql "github.com/shashiranjanraj/storefront/pkg/graphql"
)

// Catalog is satisfied by *services.ProductService.
type Catalog interface {
	List(ctx context.Context, category string) ([]models.Product, error)
	Get(ctx context.Context, id uint) (models.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Recommendations(ctx context.Context, id uint) ([]models.Product, error)
}

func product(p graphql.ResolveParams) models.Product {
	v, _ := p.Source.(models.Product)
	return v
}

func optional(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// New builds the catalogue schema.
func New(c Catalog) (graphql.Schema, error) {
	productType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Product",
		Fields: graphql.Fields{
			"id": &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return int(product(p).ID), nil
			}},
			"name": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return product(p).Name, nil
			}},
			// Exact decimal text, e.g. "19.99".
			"price": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return product(p).Price.StringFixed(2), nil
			}},
			"image": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return optional(product(p).Image), nil
			}},
			"description": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return optional(product(p).Description), nil
			}},
			"category": &graphql.Field{Type: graphql.NewNonNull(graphql.String), Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return product(p).Category, nil
			}},
			"createdAt": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return product(p).CreatedAt.UTC().Format(time.RFC3339), nil
			}},
		},
	})

	// Added after construction so the type can refer to itself.
	productType.AddFieldConfig("recommendations", &graphql.Field{
		Type: graphql.NewList(productType),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return c.Recommendations(p.Context, product(p).ID)
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"products": &graphql.Field{
				Type: graphql.NewList(productType),
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					category, _ := p.Args["category"].(string)
					return c.List(p.Context, category)
				},
			},
			"product": &graphql.Field{
				Type: productType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(int)
					if id <= 0 {
						return nil, nil
					}
					prod, err := c.Get(p.Context, uint(id))
					if errors.Is(err, models.ErrNotFound) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return prod, nil
				},
			},
			"categories": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return c.Categories(p.Context)
				},
			},
		},
	})

	return gql.NewSchema(query)
}
