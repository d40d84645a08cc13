package llm

import (
	"context"
)

type Client interface {
	SuggestDishes(ctx context.Context, req SuggestRequest) ([]DishIdea, error)
}
