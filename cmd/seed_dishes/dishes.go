package main

import "github.com/iappwebdev/mahl-zeit-planer/internal/model"

type dishSeed struct {
	name     string
	category model.Category
}

var germanDishes = []dishSeed{
	{"Lachsfilet mit Dillsauce", model.CategoryFish},
	{"Fischstäbchen mit Kartoffelpüree", model.CategoryFish},
	{"Forelle Müllerin Art", model.CategoryFish},
	{"Kabeljau mit Senfsauce", model.CategoryFish},
	{"Thunfisch-Pasta", model.CategoryFish},
	{"Backfisch mit Remoulade", model.CategoryFish},
	{"Seelachsfilet gebraten", model.CategoryFish},
	{"Garnelen-Risotto", model.CategoryFish},
	{"Matjes mit Bratkartoffeln", model.CategoryFish},
	{"Fischsuppe", model.CategoryFish},

	{"Schnitzel mit Pommes", model.CategoryMeat},
	{"Spaghetti Bolognese", model.CategoryMeat},
	{"Hähnchenbrust mit Reis", model.CategoryMeat},
	{"Gulasch mit Spätzle", model.CategoryMeat},
	{"Bratwurst mit Sauerkraut", model.CategoryMeat},
	{"Rinderbraten mit Knödeln", model.CategoryMeat},
	{"Currywurst mit Pommes", model.CategoryMeat},
	{"Hackbraten mit Kartoffeln", model.CategoryMeat},
	{"Schweinemedaillons", model.CategoryMeat},
	{"Lasagne", model.CategoryMeat},

	{"Käsespätzle", model.CategoryVegetarian},
	{"Gemüsepfanne mit Reis", model.CategoryVegetarian},
	{"Kartoffelsuppe", model.CategoryVegetarian},
	{"Spinat-Ricotta-Ravioli", model.CategoryVegetarian},
	{"Gemüselasagne", model.CategoryVegetarian},
	{"Bratkartoffeln mit Spiegelei", model.CategoryVegetarian},
	{"Tomatensuppe mit Brot", model.CategoryVegetarian},
	{"Gemüsecurry", model.CategoryVegetarian},
	{"Reibekuchen mit Apfelmus", model.CategoryVegetarian},
	{"Pilzrisotto", model.CategoryVegetarian},
}
