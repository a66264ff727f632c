package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// MaduraiKnowledge is a compact Madurai knowledge document.
const MaduraiKnowledge = `# Madurai Local Context

Madurai is the temple city of Tamil Nadu, built around the Meenakshi Amman Temple.

## Food

Jigarthanda is a cold drink made with milk, almond gum, sarsaparilla syrup and ice cream.
Famous Jigarthanda shop near Vilakkuthoon serves it until 11 PM.
Kari dosa is a mutton dosa served at Konar Mess on Simmakkal Road.
Try idli with four chutneys for breakfast at Murugan Idli Shop.

## Transport

Share autos run from Periyar Bus Stand to Meenakshi Temple for 20 rupees.
Mattuthavani Bus Stand handles long distance buses to Chennai and Trichy.

## Local Language

People here say "enna da" for what's up and "semma" for awesome.
Vanakkam is the polite greeting.

## Safety

Keep footwear at the temple counter; the temple does not allow phones inside.
Avoid the Vaigai riverbed after dark.

## Lifestyle

Evening crowds gather at the Meenakshi Temple towers around 6 PM.
Shops in Puthu Mandapam open at 9 AM and close at 9 PM.
`

// DindigulKnowledge is a compact Dindigul knowledge document.
const DindigulKnowledge = `# Dindigul Local Context

Dindigul is known for its rock fort, locks and biryani.

## Food

Dindigul biryani uses seeraga samba rice and small pieces of mutton.
Thalappakatti is the most famous biryani hotel on Palani Road.
Venu Biriyani serves lunch from 11 AM.

## Transport

Town buses leave the Dindigul bus stand for Kodaikanal every hour.
Auto fare to the rock fort is around 50 rupees.

## Local Language

Locals say "vaanga" to welcome visitors and "paravala" for never mind.

## Safety

The rock fort steps get slippery in the rain; climb before noon.

## Lifestyle

Dindigul lock makers still work on Lock Street near the market.
The weekly cattle market is busy on Thursdays.
`

// Knowledge returns the default fixture set keyed by city.
func Knowledge() map[string]string {
	return map[string]string{
		"madurai":  MaduraiKnowledge,
		"dindigul": DindigulKnowledge,
	}
}

// WriteKnowledgeDir writes texts as <city>_context.md files into a fresh
// temporary directory and returns its path.
func WriteKnowledgeDir(t *testing.T, texts map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for city, text := range texts {
		path := filepath.Join(dir, city+"_context.md")
		if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
			t.Fatalf("failed to write knowledge fixture %s: %v", path, err)
		}
	}
	return dir
}
