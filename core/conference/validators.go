package conference

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/confradar/core"
)

var (
	// cross-field tags & texts, reported by struct level validations
	endBeforeStartTag  = "end_before_start"
	endBeforeStartText = "must not be before the start"

	saleWindowOrderTag  = "sale_window_order"
	saleWindowOrderText = "sale start must not be after sale end"

	saleAfterEventTag  = "sale_after_event"
	saleAfterEventText = "ticket sales must close before the event starts"

	outsideSaleWindowTag  = "outside_sale_window"
	outsideSaleWindowText = "must lie inside the conference sale window"

	earlyBirdPriceTag  = "early_bird_price"
	earlyBirdPriceText = "early bird price must be lower than the regular price"

	capacityExceededTag  = "capacity_exceeded"
	capacityExceededText = "total ticket quantity exceeds the conference capacity"

	outsideEventTag  = "outside_event"
	outsideEventText = "must lie inside the conference dates"

	roomOverlapTag  = "room_overlap"
	roomOverlapText = "overlaps another session in the same room"

	singleCoverTag  = "single_cover"
	singleCoverText = "only one media item can be the cover"

	requiredTag = "required"
)

// Validator runs the rule set of the wizard forms.
// Field checks (blur/change) ignore cross-field rules, which are only evaluated by Validate at submit time.
type Validator struct {
	submit      *validator.Validate
	fields      *validator.Validate
	translator  ut.Translator
	fieldsTrans ut.Translator
}

// NewValidator builds both rule sets. A translator only holds one registration per tag,
// so the field validator gets its own.
func NewValidator(translator ut.Translator) *Validator {
	submit := validator.New()
	core.InitValidators(submit, translator)
	InitValidators(submit, translator)

	fieldsTrans := core.NewTranslator()
	fields := validator.New()
	core.InitValidators(fields, fieldsTrans)

	return &Validator{submit: submit, fields: fields, translator: translator, fieldsTrans: fieldsTrans}
}

// InitValidators registers the cross-field validations of the wizard forms.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(basicInfoStructValidation, BasicInfo{})
	validate.RegisterStructValidation(ticketsStructValidation, TicketsForm{})
	validate.RegisterStructValidation(sessionsStructValidation, SessionsForm{})
	validate.RegisterStructValidation(policiesStructValidation, PoliciesForm{})
	validate.RegisterStructValidation(mediaStructValidation, MediaForm{})

	core.RegisterCustomTranslation(validate, translator, endBeforeStartTag, endBeforeStartText)
	core.RegisterCustomTranslation(validate, translator, saleWindowOrderTag, saleWindowOrderText)
	core.RegisterCustomTranslation(validate, translator, saleAfterEventTag, saleAfterEventText)
	core.RegisterCustomTranslation(validate, translator, outsideSaleWindowTag, outsideSaleWindowText)
	core.RegisterCustomTranslation(validate, translator, earlyBirdPriceTag, earlyBirdPriceText)
	core.RegisterCustomTranslation(validate, translator, capacityExceededTag, capacityExceededText)
	core.RegisterCustomTranslation(validate, translator, outsideEventTag, outsideEventText)
	core.RegisterCustomTranslation(validate, translator, roomOverlapTag, roomOverlapText)
	core.RegisterCustomTranslation(validate, translator, singleCoverTag, singleCoverText)
}

// Validate runs every rule, cross-field ones included, on a step record.
// It returns a *core.ValidationError keyed by JSON field path.
func (v *Validator) Validate(record interface{}) error {
	if err := v.submit.Struct(record); err != nil {
		return core.TranslateValidationErrors(err, v.translator)
	}
	return nil
}

// CheckField returns the message of the first failing rule of the field at path, or "" when it passes.
func (v *Validator) CheckField(record interface{}, path string) string {
	err := v.fields.Struct(record)
	if err == nil {
		return ""
	}
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	for _, vErr := range vErrs {
		if core.FieldPath(vErr.Namespace()) == path {
			return vErr.Translate(v.fieldsTrans)
		}
	}
	return ""
}

// Rules returns the ordered rule tags declared for the field at path, eg: "location.venue", "tickets[0].price".
func Rules(record interface{}, path string) ([]string, error) {
	typ := reflect.TypeOf(record)
	var tag string
	for _, seg := range strings.Split(path, ".") {
		if i := strings.Index(seg, "["); i >= 0 {
			seg = seg[:i]
		}
		typ = indirectType(typ)
		if typ.Kind() != reflect.Struct {
			return nil, fmt.Errorf("unknown field %q", path)
		}
		fld, ok := fieldByJSONName(typ, seg)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", path)
		}
		typ, tag = fld.Type, fld.Tag.Get("validate")
	}
	if tag == "" || tag == "-" {
		return []string{}, nil
	}
	var rules []string
	for _, rule := range strings.Split(tag, ",") {
		if rule == "omitempty" || rule == "dive" {
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func indirectType(typ reflect.Type) reflect.Type {
	for typ.Kind() == reflect.Ptr || typ.Kind() == reflect.Slice {
		typ = typ.Elem()
	}
	return typ
}

func fieldByJSONName(typ reflect.Type, name string) (reflect.StructField, bool) {
	for i := 0; i < typ.NumField(); i++ {
		fld := typ.Field(i)
		if strings.SplitN(fld.Tag.Get("json"), ",", 2)[0] == name {
			return fld, true
		}
	}
	return reflect.StructField{}, false
}

// Struct level validations

// basicInfoStructValidation checks the date range and the ticket-sale window.
func basicInfoStructValidation(sl validator.StructLevel) {
	bi := sl.Current().Interface().(BasicInfo)

	if !bi.StartDate.IsZero() && !bi.EndDate.IsZero() && bi.EndDate.Before(bi.StartDate) {
		sl.ReportError(bi.EndDate, "end_date", "EndDate", endBeforeStartTag, "")
	}

	if bi.Type == TypePaid {
		if bi.SaleStart == nil {
			sl.ReportError(bi.SaleStart, "sale_start", "SaleStart", requiredTag, "")
		}
		if bi.SaleEnd == nil {
			sl.ReportError(bi.SaleEnd, "sale_end", "SaleEnd", requiredTag, "")
		}
	}
	if bi.SaleStart != nil && bi.SaleEnd != nil && bi.SaleStart.After(*bi.SaleEnd) {
		sl.ReportError(bi.SaleStart, "sale_start", "SaleStart", saleWindowOrderTag, "")
	}
	if bi.SaleEnd != nil && !bi.StartDate.IsZero() && !bi.SaleEnd.Before(bi.StartDate) {
		sl.ReportError(bi.SaleEnd, "sale_end", "SaleEnd", saleAfterEventTag, "")
	}
}

// ticketsStructValidation checks the tiers against each other and against the basic info.
func ticketsStructValidation(sl validator.StructLevel) {
	form := sl.Current().Interface().(TicketsForm)
	bi := form.Basic

	var total int
	for i, tier := range form.Tickets {
		total += tier.Quantity
		at := func(fld string) string { return fmt.Sprintf("tickets[%d].%s", i, fld) }

		if tier.EarlyBirdPrice != nil && *tier.EarlyBirdPrice >= tier.Price {
			sl.ReportError(tier.EarlyBirdPrice, at("early_bird_price"), "EarlyBirdPrice", earlyBirdPriceTag, "")
		}
		if tier.SaleStart != nil && tier.SaleEnd != nil && tier.SaleStart.After(*tier.SaleEnd) {
			sl.ReportError(tier.SaleStart, at("sale_start"), "SaleStart", saleWindowOrderTag, "")
		}
		if tier.SaleStart != nil && !insideWindow(*tier.SaleStart, bi.SaleStart, bi.SaleEnd) {
			sl.ReportError(tier.SaleStart, at("sale_start"), "SaleStart", outsideSaleWindowTag, "")
		}
		if tier.SaleEnd != nil {
			if !insideWindow(*tier.SaleEnd, bi.SaleStart, bi.SaleEnd) {
				sl.ReportError(tier.SaleEnd, at("sale_end"), "SaleEnd", outsideSaleWindowTag, "")
			} else if !bi.StartDate.IsZero() && !tier.SaleEnd.Before(bi.StartDate) {
				sl.ReportError(tier.SaleEnd, at("sale_end"), "SaleEnd", saleAfterEventTag, "")
			}
		}
	}

	if bi.Capacity > 0 && total > bi.Capacity {
		sl.ReportError(form.Tickets, "tickets", "Tickets", capacityExceededTag, "")
	}
}

func insideWindow(t time.Time, start, end *time.Time) bool {
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && t.After(*end) {
		return false
	}
	return true
}

// sessionsStructValidation checks session times against the conference dates and room double-bookings.
func sessionsStructValidation(sl validator.StructLevel) {
	form := sl.Current().Interface().(SessionsForm)
	bi := form.Basic

	byRoom := make(map[string][]int)
	for i, sess := range form.Sessions {
		at := func(fld string) string { return fmt.Sprintf("sessions[%d].%s", i, fld) }

		if sess.StartTime.IsZero() || sess.EndTime.IsZero() {
			continue
		}
		if !sess.EndTime.After(sess.StartTime) {
			sl.ReportError(sess.EndTime, at("end_time"), "EndTime", endBeforeStartTag, "")
			continue
		}
		if (!bi.StartDate.IsZero() && sess.StartTime.Before(bi.StartDate)) ||
			(!bi.EndDate.IsZero() && sess.EndTime.After(bi.EndDate)) {
			sl.ReportError(sess.StartTime, at("start_time"), "StartTime", outsideEventTag, "")
		}
		if sess.RoomID != "" {
			byRoom[sess.RoomID] = append(byRoom[sess.RoomID], i)
		}
	}

	for _, idxs := range byRoom {
		sort.Slice(idxs, func(a, b int) bool {
			return form.Sessions[idxs[a]].StartTime.Before(form.Sessions[idxs[b]].StartTime)
		})
		for k := 1; k < len(idxs); k++ {
			prev, curr := form.Sessions[idxs[k-1]], form.Sessions[idxs[k]]
			if curr.StartTime.Before(prev.EndTime) {
				sl.ReportError(curr.StartTime, fmt.Sprintf("sessions[%d].start_time", idxs[k]), "StartTime", roomOverlapTag, "")
			}
		}
	}
}

// policiesStructValidation requires a refund percentage on refund policies.
func policiesStructValidation(sl validator.StructLevel) {
	form := sl.Current().Interface().(PoliciesForm)
	for i, pol := range form.Policies {
		if pol.Kind == PolicyRefund && pol.RefundPercent == nil {
			sl.ReportError(pol.RefundPercent, fmt.Sprintf("policies[%d].refund_percent", i), "RefundPercent", requiredTag, "")
		}
	}
}

// mediaStructValidation allows a single cover.
func mediaStructValidation(sl validator.StructLevel) {
	form := sl.Current().Interface().(MediaForm)
	var covers int
	for i, item := range form.Media {
		if !item.Cover {
			continue
		}
		if covers++; covers > 1 {
			sl.ReportError(item.Cover, fmt.Sprintf("media[%d].cover", i), "Cover", singleCoverTag, "")
		}
	}
}
