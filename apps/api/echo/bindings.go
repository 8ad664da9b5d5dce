package echoapi

import (
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/confradar/core"
	"github.com/trezcool/confradar/core/wizard"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// Sort orders sessions by created_at / updated_at; unknown fields are ignored.
// Without orderings, the most recently updated sessions come first.
func (ord *Ordering) Sort(snaps []wizard.Snapshot) {
	orderings := ord.Orderings
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "updated_at"}}
	}
	sort.SliceStable(snaps, func(i, j int) bool {
		for _, o := range orderings {
			var a, b int64
			switch o.Field {
			case "created_at":
				a, b = snaps[i].CreatedAt.UnixNano(), snaps[j].CreatedAt.UnixNano()
			case "updated_at":
				a, b = snaps[i].UpdatedAt.UnixNano(), snaps[j].UpdatedAt.UnixNano()
			default:
				continue
			}
			if a == b {
				continue
			}
			if o.Ascending {
				return a < b
			}
			return a > b
		}
		return false
	})
}
