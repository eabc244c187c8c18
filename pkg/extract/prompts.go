package extract

import (
	"fmt"
	"strings"

	"github.com/ha1tch/ecotour/pkg/intent"
	"github.com/ha1tch/ecotour/pkg/ontology"
)

func typeEnum() string {
	return strings.Join(ontology.ClassNames(), ", ")
}

func typeGlossary() string {
	var b strings.Builder
	for _, c := range ontology.Classes() {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Description)
	}
	return b.String()
}

func attributeTable() string {
	var b strings.Builder
	for _, c := range ontology.Classes() {
		keys := make([]string, 0, len(c.Attributes))
		for _, a := range c.Attributes {
			keys = append(keys, fmt.Sprintf("%s (%s)", a.Key, a.Kind))
		}
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, strings.Join(keys, ", "))
	}
	return b.String()
}

const answerOnlyJSON = "Réponds UNIQUEMENT avec le JSON, sans texte avant ou après."

// Prompt builds the extraction prompt for a write intent.
func Prompt(in intent.Intent, question string) string {
	var b strings.Builder
	switch in {
	case intent.Relation:
		fmt.Fprintf(&b, "Extrais les informations de cette demande de relation entre entités:\nQuestion: %q\n\n", question)
		b.WriteString("Tu dois retourner UNIQUEMENT un objet JSON avec:\n")
		fmt.Fprintf(&b, "- sujet_type: le type du sujet parmi (%s)\n", typeEnum())
		b.WriteString("- sujet_nom: le nom du sujet\n")
		fmt.Fprintf(&b, "- relation: la propriété de relation parmi (%s)\n", strings.Join(ontology.Relations, ", "))
		fmt.Fprintf(&b, "- objet_type: le type de l'objet parmi (%s)\n", typeEnum())
		b.WriteString("- objet_nom: le nom de l'objet\n\n")
		b.WriteString("TYPES D'ENTITES:\n")
		b.WriteString(typeGlossary())
		b.WriteString("\nExemples:\n")
		b.WriteString(`"oumayma va à la Tunisie" -> {"sujet_type": "Personne", "sujet_nom": "oumayma", "relation": "choisitDestination", "objet_type": "Destination", "objet_nom": "Tunisie"}` + "\n")
		b.WriteString(`"Jean séjourne dans Hotel Paris" -> {"sujet_type": "Personne", "sujet_nom": "Jean", "relation": "séjourneDans", "objet_type": "Hébergement", "objet_nom": "Hotel Paris"}` + "\n")
		b.WriteString(`"Hotel Keops possede la certification ISO 2027" -> {"sujet_type": "Hébergement", "sujet_nom": "Hotel Keops", "relation": "possèdeCertification", "objet_type": "CertificationÉco", "objet_nom": "ISO 2027"}` + "\n")
		b.WriteString(`"Surf utilise Jet-Ski" -> {"sujet_type": "ActivitéTouristique", "sujet_nom": "Surf", "relation": "utilise", "objet_type": "Transport", "objet_nom": "Jet-Ski"}` + "\n")

	case intent.Create:
		fmt.Fprintf(&b, "Extrais les informations de cette demande de création d'entité:\nQuestion: %q\n\n", question)
		b.WriteString("Tu dois retourner UNIQUEMENT un objet JSON valide avec:\n")
		fmt.Fprintf(&b, "- type: le type d'entité parmi (%s)\n", typeEnum())
		b.WriteString("- attributes: un objet avec les attributs extraits (nom OBLIGATOIRE)\n\n")
		b.WriteString("Attributs reconnus par type:\n")
		b.WriteString(attributeTable())
		b.WriteString("\nExemples:\n")
		b.WriteString(`"Ajoute une personne Jean qui a 25 ans" -> {"type": "Personne", "attributes": {"nom": "Jean", "age": 25}}` + "\n")
		b.WriteString(`"Crée un hébergement Eco Lodge à 80 euros pour 12 personnes" -> {"type": "Hébergement", "attributes": {"nom": "Eco Lodge", "prix": 80, "capacite": 12}}` + "\n")
		b.WriteString(`"Nouvelle destination Djerba en Tunisie" -> {"type": "Destination", "attributes": {"nom": "Djerba", "pays": "Tunisie"}}` + "\n")

	case intent.Delete:
		fmt.Fprintf(&b, "Extrais les informations de cette demande de suppression:\nQuestion: %q\n\n", question)
		b.WriteString("Tu dois retourner UNIQUEMENT un objet JSON avec:\n")
		fmt.Fprintf(&b, "- type: le type d'entité parmi (%s)\n", typeEnum())
		b.WriteString("- nom: le nom de l'entité à supprimer\n\n")
		b.WriteString("Exemples:\n")
		b.WriteString(`"Supprime la personne Jean" -> {"type": "Personne", "nom": "Jean"}` + "\n")
		b.WriteString(`"Retire le transport Taxi Vert" -> {"type": "Transport", "nom": "Taxi Vert"}` + "\n")

	case intent.Update:
		fmt.Fprintf(&b, "Extrais les informations de cette demande de modification:\nQuestion: %q\n\n", question)
		b.WriteString("Tu dois retourner UNIQUEMENT un objet JSON avec:\n")
		fmt.Fprintf(&b, "- type: le type d'entité parmi (%s)\n", typeEnum())
		b.WriteString("- nom: le nom de l'entité à modifier\n")
		b.WriteString("- attributes: les nouveaux attributs à modifier\n\n")
		b.WriteString("Attributs reconnus par type:\n")
		b.WriteString(attributeTable())
		b.WriteString("\nExemples:\n")
		b.WriteString(`"Modifie l'âge de Jean à 30 ans" -> {"type": "Personne", "nom": "Jean", "attributes": {"age": 30}}` + "\n")
		b.WriteString(`"Change le prix de Eco Lodge à 95" -> {"type": "Hébergement", "nom": "Eco Lodge", "attributes": {"prix": 95}}` + "\n")
	}
	b.WriteString("\n" + answerOnlyJSON + "\n")
	return b.String()
}

// QueryPrompt builds the prompt asking the oracle for a read query.
func QueryPrompt(question string) string {
	var b strings.Builder
	b.WriteString("Tu es un expert en SPARQL et en ontologies OWL.\n\n")
	b.WriteString("Contexte: Ontologie de tourisme éco-responsable avec les classes suivantes:\n")
	for _, c := range ontology.Classes() {
		fmt.Fprintf(&b, "- %s (%s)\n", c.Name, strings.Join(c.Subclasses, ", "))
	}
	fmt.Fprintf(&b, "- %s\n\n", ontology.FootprintClass)

	b.WriteString("Propriétés d'objet:\n")
	fmt.Fprintf(&b, "- %s\n\n", strings.Join(ontology.Relations, ", "))

	b.WriteString("Propriétés de données:\n")
	seen := make(map[string]bool)
	var props []string
	for _, c := range ontology.Classes() {
		for _, a := range c.Attributes {
			if !seen[a.Predicate] {
				seen[a.Predicate] = true
				props = append(props, fmt.Sprintf("%s (%s)", a.Predicate, a.Kind))
			}
		}
	}
	props = append(props, "empreinte (float)")
	fmt.Fprintf(&b, "- %s\n\n", strings.Join(props, ", "))

	fmt.Fprintf(&b, "Namespace: PREFIX ns: <%s>\n", ontology.Namespace)
	b.WriteString("Préfixes à utiliser: PREFIX rdf:, PREFIX rdfs:, PREFIX owl:\n\n")
	fmt.Fprintf(&b, "Question utilisateur: %s\n\n", question)
	b.WriteString("IMPORTANT: Génère UNIQUEMENT une requête SPARQL SELECT pour interroger les données.\n")
	b.WriteString("Ne génère JAMAIS de requête INSERT, DELETE ou UPDATE.\n\n")
	b.WriteString("La requête doit:\n")
	b.WriteString("1. Être une requête SELECT uniquement\n")
	b.WriteString("2. Utiliser le préfixe ns: pour l'ontologie\n")
	b.WriteString("3. Utiliser rdf:type/rdfs:subClassOf* pour les classes\n")
	b.WriteString("4. Être syntaxiquement correcte\n")
	b.WriteString("5. Répondre précisément à la question\n")
	return b.String()
}

// suggestions are returned with extraction failures
var suggestions = map[intent.Intent]string{
	intent.Relation: "Essayez: '[personne] va à [destination]' ou '[personne] séjourne dans [hébergement]'",
	intent.Create:   "Essayez: 'Ajoute une personne [nom] qui a [age] ans'",
	intent.Delete:   "Essayez: 'Supprime [type] [nom]'",
	intent.Update:   "Essayez: 'Modifie [attribut] de [nom] à [nouvelle valeur]'",
}

// Suggestion returns the example phrasing for an intent
func Suggestion(in intent.Intent) string {
	return suggestions[in]
}
