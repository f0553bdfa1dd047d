package domain

// EntityType classifies ontology entities using Biolink categories.
type EntityType string

const (
	EntityGene                        EntityType = "Gene"
	EntityPhenotypicFeature           EntityType = "PhenotypicFeature"
	EntityBiologicalProcessOrActivity EntityType = "BiologicalProcessOrActivity"
	EntityDisease                     EntityType = "Disease"
	EntityPathway                     EntityType = "Pathway"
	EntityCell                        EntityType = "Cell"
	EntityGrossAnatomicalStructure    EntityType = "GrossAnatomicalStructure"
	EntityAnatomicalEntity            EntityType = "AnatomicalEntity"
	EntityCellularComponent           EntityType = "CellularComponent"
	EntityMolecularEntity             EntityType = "MolecularEntity"
	EntityNamedThing                  EntityType = "NamedThing"
	EntityMacromolecularComplex       EntityType = "MacromolecularComplex"
	EntityProtein                     EntityType = "Protein"
	EntityCellularOrganism            EntityType = "CellularOrganism"
	EntityVertebrate                  EntityType = "Vertebrate"
	EntityVirus                       EntityType = "Virus"
	EntityBehavioralFeature           EntityType = "BehavioralFeature"
	EntityChemicalEntity              EntityType = "ChemicalEntity"
	EntityLifeStage                   EntityType = "LifeStage"
	EntityPathologicalProcess         EntityType = "PathologicalProcess"
	EntityDrug                        EntityType = "Drug"
	EntitySmallMolecule               EntityType = "SmallMolecule"
	EntityInformationContentEntity    EntityType = "InformationContentEntity"
	EntityNucleicAcidEntity           EntityType = "NucleicAcidEntity"
	EntityEvidenceType                EntityType = "EvidenceType"
	EntityRNAProduct                  EntityType = "RNAProduct"
	EntityTranscript                  EntityType = "Transcript"
	EntityProcessedMaterial           EntityType = "ProcessedMaterial"
	EntityEnvironmentalFeature        EntityType = "EnvironmentalFeature"
	EntityPlant                       EntityType = "Plant"
	EntityOrganismTaxon               EntityType = "OrganismTaxon"
	EntityPolypeptide                 EntityType = "Polypeptide"
)

var entityTypeDescriptions = map[EntityType]string{
	EntityGene:                        "A region (or regions) that includes all of the sequence elements necessary to encode a functional transcript. A gene locus may include regulatory regions, transcribed regions and/or other functional sequence regions.",
	EntityPhenotypicFeature:           "A combination of entity and quality that makes up a phenotyping statement. An observable characteristic of an individual resulting from the interaction of its genotype with its molecular and physical environment.",
	EntityBiologicalProcessOrActivity: "Either an individual molecular activity, or a collection of causally connected molecular activities in a biological system.",
	EntityDisease:                     "A disorder of structure or function, especially one that produces specific signs, phenotypes or symptoms or that affects a specific location and is not simply a direct result of physical injury. A disposition to undergo pathological processes that exists in an organism because of one or more disorders in that organism.",
	EntityPathway:                     "A pathway is a series of chemical reactions that occur in a living organism.",
	EntityCell:                        "A cell is the basic structural and functional unit of an organism.",
	EntityGrossAnatomicalStructure:    "A gross anatomical structure is a part of the body (i.e. a tissue, organ, etc.).",
	EntityAnatomicalEntity:            "An anatomical entity is a part of the body.",
	EntityCellularComponent:           "A location in or around a cell.",
	EntityMolecularEntity:             "A molecular entity is a chemical entity composed of individual or covalently bonded atoms.",
	EntityNamedThing:                  "A databased entity or concept/class.",
	EntityMacromolecularComplex:       "A stable assembly of two or more macromolecules, i.e. proteins, nucleic acids, carbohydrates or lipids, in which at least one component is a protein and the constituent parts function together.",
	EntityProtein:                     "A gene product that is composed of a chain of amino acid sequences and is produced by ribosome-mediated translation of mRNA.",
	EntityCellularOrganism:            "A cellular organism is an organism that is made up of cells.",
	EntityVertebrate:                  "A sub-phylum of animals consisting of those having a bony or cartilaginous vertebral column.",
	EntityVirus:                       "A virus is a microorganism that replicates itself as a microRNA and infects the host cell.",
	EntityBehavioralFeature:           "A phenotypic feature which is behavioral in nature.",
	EntityChemicalEntity:              "A chemical entity is a physical entity that pertains to chemistry or biochemistry.",
	EntityLifeStage:                   "A stage of development or growth of an organism, including post-natal adult stages.",
	EntityPathologicalProcess:         "A biologic function or a process having an abnormal or deleterious effect at the subcellular, cellular, multicellular, or organismal level.",
	EntityDrug:                        "A substance intended for use in the diagnosis, cure, mitigation, treatment, or prevention of disease.",
	EntitySmallMolecule:               "A small molecule entity is a molecular entity characterized by availability in small-molecule databases of SMILES, InChI, IUPAC, or other unambiguous representation of its precise chemical structure; for convenience of representation, any valid chemical representation is included, even if it is not strictly molecular (e.g., sodium ion).",
	EntityInformationContentEntity:    "A piece of information that typically describes some topic of discourse or is used as support.",
	EntityNucleicAcidEntity:           "A nucleic acid entity is a molecular entity characterized by availability in gene databases of nucleotide-based sequence representations of its precise sequence; for convenience of representation, partial sequences of various kinds are included.",
	EntityEvidenceType:                "Class of evidence that supports an association.",
	EntityRNAProduct:                  "An RNA product is a product of an RNA molecule.",
	EntityTranscript:                  "An RNA synthesized on a DNA or RNA template by an RNA polymerase.",
	EntityProcessedMaterial:           "A chemical entity (often a mixture) processed for consumption for nutritional, medical or technical use. Is a material entity that is created or changed during material processing.",
	EntityEnvironmentalFeature:        "An environmental feature is a feature of the environment that is stored in a database.",
	EntityPlant:                       "A plant is a living organism that is part of the plant kingdom.",
	EntityOrganismTaxon:               "A classification of a set of organisms. Example instances: NCBITaxon:9606 (Homo sapiens), NCBITaxon:2 (Bacteria). Can also be used to represent strains or subspecies.",
	EntityPolypeptide:                 "A polypeptide is a molecular entity characterized by availability in protein databases of amino-acid-based sequence representations of its precise primary structure; for convenience of representation, partial sequences of various kinds are included, even if they do not represent a physical molecule.",
}

// Description returns the Biolink description of the entity type, or the
// empty string for unknown types.
func (t EntityType) Description() string {
	return entityTypeDescriptions[t]
}

func ValidEntityType(t string) bool {
	_, ok := entityTypeDescriptions[EntityType(t)]
	return ok
}

// EntityRecord is a single ontology entity.
type EntityRecord struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Type        EntityType `json:"type"`
	Synonyms    []string   `json:"synonyms,omitempty"`
	Xrefs       []string   `json:"xrefs,omitempty"`
	IRI         string     `json:"iri,omitempty"`
	Embedding   []float32  `json:"-"`
}

type EntityMatch struct {
	EntityRecord
	Similarity float64 `json:"similarity"`
}

// XrefRow is one exploded cross-reference of an ontology entity.
type XrefRow struct {
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Xref       string `json:"xref"`
}
