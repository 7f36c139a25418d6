package segment

import (
	"encoding/json"
	"fmt"
	"strconv"

	domseg "github.com/kailas-cloud/segmatch/internal/domain/segment"
)

const (
	fieldID          = "id"
	fieldParentID    = "parent_id"
	fieldName        = "name"
	fieldDescription = "description"
	fieldType        = "type"
	fieldPrice       = "price"
	fieldActive      = "actively_generated"
	fieldTierPath    = "tier_path"
	fieldFullPath    = "full_path"

	fieldScalePeople     = "scale_people"
	fieldScaleHouseholds = "scale_households"
	fieldScaleDevices    = "scale_devices"
	fieldScaleCookies    = "scale_cookies"
)

// buildHashFields flattens a segment for HSET. Absent scale estimates are omitted.
func buildHashFields(s *domseg.Segment) map[string]string {
	m := map[string]string{
		fieldID:          s.ID,
		fieldParentID:    s.ParentID,
		fieldName:        s.Name,
		fieldDescription: s.Description,
		fieldType:        string(s.Type),
		fieldPrice:       strconv.FormatFloat(s.Price, 'f', -1, 64),
		fieldActive:      strconv.FormatBool(s.ActivelyGenerated),
		fieldFullPath:    s.Path(),
	}
	if len(s.TierPath) > 0 {
		// Tier labels may contain any separator, so the list is stored as JSON.
		if b, err := json.Marshal(s.TierPath); err == nil {
			m[fieldTierPath] = string(b)
		}
	}
	putScale(m, fieldScalePeople, s.Scale.People)
	putScale(m, fieldScaleHouseholds, s.Scale.Households)
	putScale(m, fieldScaleDevices, s.Scale.Devices)
	putScale(m, fieldScaleCookies, s.Scale.Cookies)
	return m
}

func putScale(m map[string]string, field string, v *float64) {
	if v != nil {
		m[field] = strconv.FormatFloat(*v, 'f', -1, 64)
	}
}

// parseHashFields rebuilds a segment from a hash. A missing or unparseable
// price, flag, tier path or scale estimate is an error: a zero value would
// slip through price and scale filters.
func parseHashFields(id string, m map[string]string) (domseg.Segment, error) {
	s := domseg.Segment{
		ID:          id,
		ParentID:    m[fieldParentID],
		Name:        m[fieldName],
		Description: m[fieldDescription],
		Type:        domseg.Type(m[fieldType]),
		FullPath:    m[fieldFullPath],
	}
	if v, ok := m[fieldID]; ok && v != "" {
		s.ID = v
	}

	price, err := strconv.ParseFloat(m[fieldPrice], 64)
	if err != nil {
		return domseg.Segment{}, fmt.Errorf("segment %s: field %s: %w", s.ID, fieldPrice, err)
	}
	s.Price = price

	if raw, ok := m[fieldActive]; ok {
		if s.ActivelyGenerated, err = strconv.ParseBool(raw); err != nil {
			return domseg.Segment{}, fmt.Errorf("segment %s: field %s: %w", s.ID, fieldActive, err)
		}
	}
	if raw := m[fieldTierPath]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.TierPath); err != nil {
			return domseg.Segment{}, fmt.Errorf("segment %s: field %s: %w", s.ID, fieldTierPath, err)
		}
	}

	for field, dst := range map[string]**float64{
		fieldScalePeople:     &s.Scale.People,
		fieldScaleHouseholds: &s.Scale.Households,
		fieldScaleDevices:    &s.Scale.Devices,
		fieldScaleCookies:    &s.Scale.Cookies,
	} {
		if *dst, err = scaleOf(m, field); err != nil {
			return domseg.Segment{}, fmt.Errorf("segment %s: field %s: %w", s.ID, field, err)
		}
	}
	return s, nil
}

func scaleOf(m map[string]string, field string) (*float64, error) {
	raw, ok := m[field]
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
