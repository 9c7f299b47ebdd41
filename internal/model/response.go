package model

import "sort"

// ResponseSet maps an item id to the recorded answer
type ResponseSet map[string]int

// Clone returns an independent copy of the set
func (r ResponseSet) Clone() ResponseSet {
	out := make(ResponseSet, len(r))
	for id, v := range r {
		out[id] = v
	}
	return out
}

// IDs returns the answered item ids in lexical order
func (r ResponseSet) IDs() []string {
	ids := make([]string, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Profile holds the demographic fields of a respondent.
// Never scored; exported verbatim next to the raw answers.
type Profile struct {
	Nickname         string `json:"nickname" yaml:"nickname"`
	Gender           string `json:"gender" yaml:"gender"`
	AgeBracket       string `json:"age_bracket" yaml:"age_bracket"`
	EducationLevel   string `json:"education_level" yaml:"education_level"`
	ProfessionalRole string `json:"professional_role" yaml:"professional_role"`
}

// Fields returns the profile values in export column order
func (p Profile) Fields() []string {
	return []string{p.Nickname, p.Gender, p.AgeBracket, p.EducationLevel, p.ProfessionalRole}
}

// ProfileFromFields is the inverse of Fields; missing trailing values stay empty
func ProfileFromFields(fields []string) Profile {
	get := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	return Profile{
		Nickname:         get(0),
		Gender:           get(1),
		AgeBracket:       get(2),
		EducationLevel:   get(3),
		ProfessionalRole: get(4),
	}
}

// ProfileColumns are the export header names of the profile fields
var ProfileColumns = []string{"nickname", "gender", "age_bracket", "education_level", "professional_role"}

// Option lists offered by the questionnaire forms
var (
	GenderOptions = []string{"maschile", "femminile", "non binario", "non risponde"}

	AgeBracketOptions = []string{
		"fino a 20 anni", "21-30 anni", "31-40 anni", "41-50 anni",
		"51-60 anni", "61-70 anni", "più di 70 anni",
	}

	EducationOptions = []string{
		"licenza media", "qualifica professionale", "diploma di maturità",
		"laurea triennale", "laurea magistrale", "titolo post lauream",
	}

	RoleOptions = []string{
		"imprenditore", "top manager", "middle manager", "impiegato",
		"operaio", "tirocinante", "libero professionista",
	}
)
