package handlers

import (
	"github.com/efarmer/subsidy/common/entitlement"
	"github.com/efarmer/subsidy/common/models"
)

// farmerResponse renders a farmer with the Aadhaar number masked
func farmerResponse(f *models.Farmer) map[string]interface{} {
	return map[string]interface{}{
		"efn":              f.EFN,
		"farmerName":       f.Name,
		"aadhaar":          f.MaskedAadhaar(),
		"rationCard":       f.RationCard,
		"phone":            f.Phone,
		"village":          f.Village,
		"district":         f.District,
		"landArea":         f.LandArea,
		"soilType":         f.SoilType,
		"cropType":         f.CropType,
		"rainfallZone":     f.RainfallZone,
		"landLat":          f.LandLat,
		"landLon":          f.LandLon,
		"imageStatus":      f.ImageStatus.String(),
		"imageState":       f.ImageStatus.State,
		"imageReasons":     nonNilStrings(f.ImageStatus.Reasons),
		"standardImageRef": f.StandardImageRef,
		"cornerImageRef":   f.CornerImageRef,
		"registeredAt":     f.RegisteredAt,
		"updatedAt":        f.UpdatedAt,
	}
}

func farmerList(farmers []*models.Farmer) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(farmers))
	for _, f := range farmers {
		out = append(out, farmerResponse(f))
	}
	return out
}

func quotaResponse(product string, q entitlement.Quota) map[string]interface{} {
	resp := map[string]interface{}{
		"productType": product,
		"maxAllowed":  q.MaxAllowed,
		"ruleDefined": q.Rule != nil,
	}
	if q.Rule != nil {
		resp["maxPerAcre"] = q.Rule.MaxPerAcre
	}
	return resp
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
