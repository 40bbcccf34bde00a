package graph

import "fmt"

func errLenMismatch(got, want int) error {
	return fmt.Errorf("graph: personalized_page_rank: reset vector length %d does not match vertex count %d", got, want)
}
