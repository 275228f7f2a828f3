// Package dataset loads protein-function training data: sequences from FASTA, GO-term
// annotations from TSV, and precomputed backbone embeddings from a SafeTensors store.
//
// Layout under a data directory:
//
//	train.fasta          >P12345 description\nMKTAYIAK...
//	annotations.tsv      P12345<TAB>mfo<TAB>GO:0003674,GO:0005515
//	embeddings.safetensors
//
// The loader joins these by protein ID and yields shuffled mini-batches.
package dataset
