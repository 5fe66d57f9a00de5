package models

import (
	"fmt"
	"strings"
)

// Street is a leaf of the location lookup table.
type Street struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Zone groups the streets of one neighbourhood.
type Zone struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Streets []Street `json:"streets"`
}

// Arrondissement is the top level of the location lookup table.
type Arrondissement struct {
	Center Coordinates `json:"center"`
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Zones  []Zone      `json:"zones"`
}

// Locations is the static arrondissement, zone and street table of the municipality.
var Locations = []Arrondissement{
	{
		ID:     "Tunis",
		Name:   "Tunis",
		Center: Coordinates{Lat: 36.7989, Lng: 10.1765},
		Zones: []Zone{
			zone("Bab El Bhar",
				"Avenue Habib-Bourguiba",
				"Fondouk El Ghalla",
				"Place de Barcelone",
				"Quartier Lafayette",
				"Jardin Habib-Thameur",
				"Avenue de la Liberté",
				"Montplaisir",
			),
			zone("Bab Souika",
				"Halfaouine",
				"Bab Saadoun",
				"Bab Laassal",
				"Bab Sidi Abdessalem",
				"Bab El Allouj",
				"Bab Souika",
				"Bab El Khadra",
				"Bab Lakouas",
				"Borj Zouara",
				"Hammam El Remimi",
				"Sidi Djebeli",
				"Tronja",
				"Zaouiet El Bakria",
			),
			zone("Médina",
				"El Hafsia",
				"Kasbah",
				"Sidi El Morjani",
				"Tourbet El Bey",
				"Place Maâkal Az-Zaïm",
				"El Sabbaghine",
				"Sidi Boumendil",
				"Bab Menara",
				"Bab Sidi Kacem",
				"Bab Jedid",
			),
			zone("Sidi El Béchir",
				"Bab El Fellah",
				"Sidi El Béchir",
				"Maakel Ezzam",
				"Bab El Gorjani",
				"Montfleury",
				"Abou El Kacem Chebbi",
				"Saïda Manoubia",
				"Bab Alioua",
				"Sidi Mansour",
			),
			zone("Djebel Jelloud",
				"Sidi Fathallah",
				"Djebel Jelloud",
				"Ali Bach-Hamba",
				"Cité Thameur",
				"El Afrane",
				"El Garjouma",
				"El Sebkha",
			),
			zone("El Kabaria",
				"El Ouardia 4",
				"El Kabaria 1",
				"El Kabaria 2",
				"El Kabaria 3",
				"El Kabaria 4",
				"Cité Ibn Sina",
				"Cité Bou Hjar",
				"El Mourouj 2",
			),
			zone("Séjoumi",
				"Cité Khaled Ibn El Oualid",
				"Cité Ibn Khaldoun",
				"Cité Ibn Charaf",
				"Cité El Wafa",
				"Cité Ennour",
				"Cité Erriadh",
				"Cité El Badr",
				"Cité Intilaka",
				"Zone Sebkha Séjoumi",
			),
			zone("El Ouardia",
				"Cité Monome",
				"Belle Vue",
				"Cité Mohamed-Ali",
				"La Cagna",
				"Dubosville",
				"Borj Ali Raïs",
				"Cité El Izdihar",
				"El Ouardia",
				"Les Martyrs",
				"Mathul de Ville",
			),
			zone("Sidi Hassine",
				"Sidi Hassine",
				"Cité El Ghezala",
				"Cité Ibn Khaldoun",
				"Cité El Amine",
				"Cité El Kheir",
				"Cité Ennahda",
				"Cité El Manar",
			),
			zone("Ezzouhour",
				"Cité des Officiers",
				"Cité Essaada",
				"Cité Essomrane",
				"Cité Ezzouhour",
				"Ezzouhour 4",
			),
			zone("Hraïria",
				"Cité Hraïria",
				"Cité El Gharbi",
				"Cité Ennour",
				"Cité El Amal",
				"Cité El Khadra",
				"Cité El Menzeh",
			),
		},
	},
}

func zone(name string, streets ...string) Zone {
	z := Zone{ID: name, Name: name, Streets: make([]Street, 0, len(streets))}
	for _, s := range streets {
		z.Streets = append(z.Streets, Street{ID: s, Name: s})
	}
	return z
}

// ValidateLocation checks that zone belongs to arrondissement and street to zone.
// Comparison ignores case and surrounding whitespace.
func ValidateLocation(arrondissement, zone, street string) error {
	for _, a := range Locations {
		if !strings.EqualFold(a.ID, strings.TrimSpace(arrondissement)) {
			continue
		}
		for _, z := range a.Zones {
			if !strings.EqualFold(z.ID, strings.TrimSpace(zone)) {
				continue
			}
			for _, s := range z.Streets {
				if strings.EqualFold(s.ID, strings.TrimSpace(street)) {
					return nil
				}
			}
			return fmt.Errorf("street %q does not belong to zone %q", street, zone)
		}
		return fmt.Errorf("zone %q does not belong to arrondissement %q", zone, arrondissement)
	}
	return fmt.Errorf("unknown arrondissement %q", arrondissement)
}
