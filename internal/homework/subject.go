package homework

var subjectCodes = map[string]string{
	"Ad": "Graphics",
	"Ar": "Art",
	"As": "ASPIRE",
	"Aw": "ASDAN",
	"Bn": "Business",
	"By": "Biology",
	"Cc": "Child Development",
	"Ch": "Chemistry",
	"Cp": "Computing",
	"Dr": "Drama",
	"Dt": "Design & Technology",
	"Ec": "Economics",
	"En": "English",
	"Fm": "Further Maths",
	"Fo": "Food & Nutrition",
	"Fr": "French",
	"Gg": "Geography",
	"Go": "Politics",
	"Hc": "Health & Social Care",
	"Hi": "History",
	"It": "IT",
	"Ma": "Maths",
	"Mu": "Music",
	"Pa": "Performing Arts",
	"Pc": "Physics",
	"Pe": "PE",
	"Pg": "GCSE PE",
	"Pt": "Photography",
	"Py": "Psychology",
	"Rr": "Reading",
	"Rs": "Religious Studies",
	"Sc": "Science",
	"So": "Sociology",
	"Ss": "Sport Science",
	"St": "Statistics",
	"Tx": "Textiles",
	"Wa": "Wellbeing Active",
	"Wi": "Wellbeing Inspire",
}

// Subject labels a course by the two-letter code starting at the last
// uppercase ASCII letter of its name, e.g. "10Ma1" is "Maths". Names with
// no uppercase letter or an unknown code are returned unchanged.
func Subject(courseName string) string {
	i := len(courseName) - 1
	for ; i >= 0; i-- {
		if c := courseName[i]; c >= 'A' && c <= 'Z' {
			break
		}
	}
	if i < 0 {
		return courseName
	}

	code := courseName[i:min(i+2, len(courseName))]
	if name, ok := subjectCodes[code]; ok {
		return name
	}
	return courseName
}
